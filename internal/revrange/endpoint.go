package revrange

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindUnset       Kind = "unset"
	KindRevision    Kind = "revision"
	KindWorkingTree Kind = "working_tree"
)

// Endpoint is one side of a selection: nothing, a revision or the working
// tree. The zero value is Unset.
type Endpoint struct {
	kind Kind
	id   string
}

func Unset() Endpoint {
	return Endpoint{}
}

func Revision(id string) Endpoint {
	return Endpoint{kind: KindRevision, id: id}
}

func WorkingTree() Endpoint {
	return Endpoint{kind: KindWorkingTree}
}

func (e Endpoint) Kind() Kind {
	if e.kind == "" {
		return KindUnset
	}

	return e.kind
}

// ID is the revision id, empty for other kinds.
func (e Endpoint) ID() string {
	return e.id
}

func (e Endpoint) IsZero() bool {
	return e.Kind() == KindUnset
}

func (e Endpoint) Equal(other Endpoint) bool {
	return e.Kind() == other.Kind() && e.id == other.id
}

func (e Endpoint) String() string {
	switch e.Kind() {
	case KindRevision:
		return e.id
	case KindWorkingTree:
		return "working tree"
	default:
		return "unset"
	}
}

type endpointJSON struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
}

func (e Endpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(endpointJSON{Kind: e.Kind(), ID: e.id}) //nolint:wrapcheck
}

func (e *Endpoint) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = Unset()
		return nil
	}

	var v endpointJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	switch v.Kind {
	case KindUnset, "":
		*e = Unset()
	case KindWorkingTree:
		*e = WorkingTree()
	case KindRevision:
		if v.ID == "" {
			return fmt.Errorf("%w: revision without id", ErrInvalidEndpoint)
		}
		*e = Revision(v.ID)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEndpoint, v.Kind)
	}

	return nil
}
