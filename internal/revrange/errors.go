package revrange

import "errors"

var (
	ErrUnknownRevision = errors.New("unknown revision")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)
