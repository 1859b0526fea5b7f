package git

import (
	"fmt"

	"go.uber.org/zap"
)

// NewOpener returns the Opener for the configured backend.
func NewOpener(config Config, logger *zap.Logger) (Opener, error) {
	exclude := config.Exclude
	if exclude == nil {
		exclude = DefaultExclude()
	}

	switch config.Backend {
	case BackendExec, "":
		return NewExecOpener(NewExecRunner(config.Binary, config.Timeout), exclude, logger), nil
	case BackendEmbedded:
		return NewEmbeddedOpener(exclude, logger), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
}
