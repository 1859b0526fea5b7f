// Package cli is the duff command line. The offline commands open a working
// copy directly; serve runs the dashboard API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/chigichan24/duff/internal"
	"github.com/chigichan24/duff/internal/changes"
	"github.com/chigichan24/duff/internal/config"
	"github.com/chigichan24/duff/internal/git"
	"github.com/chigichan24/duff/internal/revrange"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeout = 30 * time.Second

type options struct {
	backend  string
	binary   string
	exclude  []string
	verbose  bool
	logDepth int
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "duff",
		Short:         "Dashboard of uncommitted changes across git working copies",
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", string(git.BackendExec), "git backend: exec or embedded")
	flags.StringVar(&opts.binary, "git", "git", "git binary used by the exec backend")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "directory names skipped in the working tree (default: dependency and build dirs)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		serveCmd(&opts),
		statusCmd(&opts, stderr),
		logCmd(&opts, stderr),
		filesCmd(&opts, stderr),
		diffCmd(&opts, stderr),
		showCmd(&opts, stderr),
	)

	rootCmd.SetArgs(args[1:])
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "duff: %v\n", err)
		return 1
	}
	return 0
}

func serveCmd(opts *options) *cobra.Command {
	var (
		address  string
		dataDir  string
		inMemory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API",
		Long:  "Run the HTTP API. Settings come from CONFIG_PATH and the environment; flags given here take precedence.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed := cmd.Flags().Changed

			internal.Run(func(cfg *config.Config) {
				if changed("address") {
					cfg.HTTP.Address = address
				}
				if changed("data-dir") {
					cfg.Storage.DataDir = dataDir
				}
				if changed("in-memory") {
					cfg.Storage.InMemory = inMemory
				}
				if changed("backend") {
					cfg.Git.Backend = opts.backend
				}
				if changed("git") {
					cfg.Git.Binary = opts.binary
				}
				if changed("exclude") {
					cfg.Git.Exclude = opts.exclude
				}
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "registry data directory")
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep the registry in memory only")

	return cmd
}

func statusCmd(opts *options, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "status <path>",
		Short: "Print branch and modified files as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), opts, stderr, args[0], func(r *changes.Resolver, b git.Backend) error {
				status, err := r.Status(cmd.Context(), b)
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), statusOutput{
					Branch:        status.Branch,
					ModifiedFiles: nonNil(status.ModifiedFiles),
					HasChanges:    status.HasChanges,
					LastUpdate:    status.LastUpdate,
				})
			})
		},
	}
}

func logCmd(opts *options, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <path>",
		Short: "Print commits and stashes as JSON, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), opts, stderr, args[0], func(r *changes.Resolver, b git.Backend) error {
				commits, err := r.Log(cmd.Context(), b)
				if err != nil {
					return err
				}

				out := make([]commitOutput, 0, len(commits))
				for _, c := range commits {
					out = append(out, newCommitOutput(c))
				}

				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().IntVar(&opts.logDepth, "depth", changes.DefaultLogDepth, "maximum number of commits")

	return cmd
}

func filesCmd(opts *options, stderr io.Writer) *cobra.Command {
	var rng revrange.Range

	cmd := &cobra.Command{
		Use:   "files <path>",
		Short: "Print the files a diff would cover as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), opts, stderr, args[0], func(r *changes.Resolver, b git.Backend) error {
				files, err := r.Files(cmd.Context(), b, rng)
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), filesOutput{Files: nonNil(files)})
			})
		},
	}

	rangeFlags(cmd, &rng)

	return cmd
}

func diffCmd(opts *options, stderr io.Writer) *cobra.Command {
	var rng revrange.Range

	cmd := &cobra.Command{
		Use:   "diff <path> [file]",
		Short: "Print a unified diff",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 2 {
				file = args[1]
			}

			return withResolver(cmd.Context(), opts, stderr, args[0], func(r *changes.Resolver, b git.Backend) error {
				diff, err := r.Diff(cmd.Context(), b, file, rng)
				if err != nil {
					return err
				}

				_, err = io.WriteString(cmd.OutOrStdout(), diff)
				return err
			})
		},
	}

	rangeFlags(cmd, &rng)

	return cmd
}

func showCmd(opts *options, stderr io.Writer) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "show <path> <file>",
		Short: "Print the raw content of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), opts, stderr, args[0], func(r *changes.Resolver, b git.Backend) error {
				data, err := r.Content(cmd.Context(), b, args[1], version)
				if err != nil {
					return err
				}

				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "revision to read, working tree by default")

	return cmd
}

func rangeFlags(cmd *cobra.Command, rng *revrange.Range) {
	cmd.Flags().StringVar(&rng.From, "from", "", "base revision, HEAD by default")
	cmd.Flags().StringVar(&rng.To, "to", "", "target revision, working tree by default")
}

func withResolver(
	ctx context.Context,
	opts *options,
	stderr io.Writer,
	path string,
	fn func(r *changes.Resolver, b git.Backend) error,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger(stderr, opts.verbose)
	defer func() { _ = logger.Sync() }()

	opener, err := git.NewOpener(git.Config{
		Backend: git.BackendKind(opts.backend),
		Binary:  opts.binary,
		Timeout: defaultTimeout,
		Exclude: opts.exclude,
	}, logger)
	if err != nil {
		return err //nolint:wrapcheck
	}

	b, err := opener.Open(ctx, path)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Warn("failed to close repository", zap.Error(closeErr))
		}
	}()

	depth := opts.logDepth
	if depth <= 0 {
		depth = changes.DefaultLogDepth
	}

	return fn(changes.NewResolver(changes.Config{LogDepth: depth}, logger), b)
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}

	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
