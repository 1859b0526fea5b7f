package changes

import (
	"time"

	"github.com/chigichan24/duff/internal/revrange"
)

type RangeQuery struct {
	From string `query:"from" validate:"max=256"`
	To   string `query:"to"   validate:"max=256"`
}

type DiffQuery struct {
	File string `query:"file" validate:"max=4096"`
	From string `query:"from" validate:"max=256"`
	To   string `query:"to"   validate:"max=256"`
}

type ContentQuery struct {
	File    string `query:"file"    validate:"required,max=4096"`
	Version string `query:"version" validate:"max=256"`
}

type StatusResponse struct {
	Branch        string    `json:"branch"`
	ModifiedFiles []string  `json:"modifiedFiles"`
	HasChanges    bool      `json:"hasChanges"`
	LastUpdate    time.Time `json:"lastUpdate"`
}

type CommitResponse struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"shortHash"`
	Parents   []string  `json:"parents"`
	Date      time.Time `json:"date"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Type      string    `json:"type"`
	Ref       string    `json:"ref,omitempty"`
}

type FilesResponse struct {
	Files []string `json:"files"`
}

type DiffResponse struct {
	Diff string `json:"diff"`
}

// ClickRequest is a click on a history node, the working tree included.
type ClickRequest struct {
	Node  revrange.Endpoint `json:"node"`
	Shift bool              `json:"shift"`
}

type SelectionRequest struct {
	Selection revrange.Selection `json:"selection"`
	Click     *ClickRequest      `json:"click,omitempty"`
}

type SelectionResponse struct {
	Selection revrange.Selection `json:"selection"`
	Range     revrange.Range     `json:"range"`
	Files     []string           `json:"files"`
}
