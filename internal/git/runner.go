package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Runner runs the git binary inside a working tree and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

type ExecRunner struct {
	bin     string
	timeout time.Duration
}

func NewExecRunner(bin string, timeout time.Duration) *ExecRunner {
	if strings.TrimSpace(bin) == "" {
		bin = "git"
	}

	return &ExecRunner{
		bin:     bin,
		timeout: timeout,
	}
}

// Run implements Runner. Stdout is returned untouched so blobs survive
// byte-for-byte; stderr ends up in the error.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	full := append([]string{"--no-optional-locks", "-C", dir}, args...)
	cmd := exec.CommandContext(ctx, r.bin, full...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: git %s: %s", ErrToolFailure, sanitizeArgs(args), redactTokens(msg))
	}

	return stdout.Bytes(), nil
}

var (
	safeArg     = regexp.MustCompile(`^[a-z][a-z-]*$`)
	credentials = regexp.MustCompile(`https?://[^\s@]+@`)
	secrets     = regexp.MustCompile(`(?i)(token|secret|password|passwd|bearer)=\S+`)
)

// sanitizeArgs keeps at most the first two subcommand words so paths and
// revisions never reach the logs.
func sanitizeArgs(args []string) string {
	safe := make([]string, 0, 2)
	for _, a := range args {
		if !safeArg.MatchString(a) {
			break
		}
		safe = append(safe, a)
		if len(safe) == 2 {
			break
		}
	}

	if len(safe) == 0 {
		return "<redacted>"
	}

	return strings.Join(safe, " ")
}

func redactTokens(s string) string {
	s = credentials.ReplaceAllString(s, "https://<redacted>@")
	return secrets.ReplaceAllString(s, "$1=<redacted>")
}
