package cli

import (
	"time"

	"github.com/chigichan24/duff/internal/git"
)

type statusOutput struct {
	Branch        string    `json:"branch"`
	ModifiedFiles []string  `json:"modifiedFiles"`
	HasChanges    bool      `json:"hasChanges"`
	LastUpdate    time.Time `json:"lastUpdate"`
}

type commitOutput struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"shortHash"`
	Parents   []string  `json:"parents"`
	Date      time.Time `json:"date"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Type      string    `json:"type"`
	Ref       string    `json:"ref,omitempty"`
}

func newCommitOutput(c git.Commit) commitOutput {
	return commitOutput{
		Hash:      c.Hash,
		ShortHash: c.ShortHash,
		Parents:   nonNil(c.Parents),
		Date:      c.Date,
		Message:   c.Message,
		Author:    c.Author,
		Type:      string(c.Type),
		Ref:       c.Ref,
	}
}

type filesOutput struct {
	Files []string `json:"files"`
}
