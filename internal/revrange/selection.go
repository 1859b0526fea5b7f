package revrange

import (
	"fmt"

	"github.com/chigichan24/duff/internal/git"
)

// Selection is the pair of endpoints picked in the history view.
type Selection struct {
	From Endpoint `json:"from,omitzero"`
	To   Endpoint `json:"to,omitzero"`
}

// Click applies a click on node. A plain click on the current From clears
// the selection, any other plain click starts a new one. Shift extends the
// selection to node, or starts one when nothing is selected yet.
func (s Selection) Click(node Endpoint, shift bool) Selection {
	if node.IsZero() {
		return s
	}

	if shift && !s.From.IsZero() {
		return Selection{From: s.From, To: node}
	}

	if s.From.Equal(node) && !shift {
		return Selection{}
	}

	return Selection{From: node}
}

// Range is what a selection diffs. Empty From means HEAD, empty To means
// the working tree.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Resolve turns a selection into a range using history, newest first. The
// working tree counts as newer than any commit. With two endpoints the range
// starts at the first parent of the older one so its own changes are
// included; a root commit starts at the empty tree.
func Resolve(s Selection, history []git.Commit) (Range, error) {
	from, to := s.From, s.To
	if from.IsZero() {
		from, to = to, Unset()
	}
	if to.Equal(from) {
		to = Unset()
	}

	if from.IsZero() {
		return Range{}, nil
	}

	if to.IsZero() {
		if from.Kind() == KindWorkingTree {
			return Range{}, nil
		}

		c, _, err := find(history, from.ID())
		if err != nil {
			return Range{}, err
		}

		return Range{From: c.Hash}, nil
	}

	older, newer, err := order(history, from, to)
	if err != nil {
		return Range{}, err
	}

	base := git.EmptyTreeHash
	if len(older.Parents) > 0 {
		base = older.Parents[0]
	}

	target := ""
	if newer.Kind() == KindRevision {
		c, _, findErr := find(history, newer.ID())
		if findErr != nil {
			return Range{}, findErr
		}
		target = c.Hash
	}

	return Range{From: base, To: target}, nil
}

// order returns the older commit and the newer endpoint.
func order(history []git.Commit, a, b Endpoint) (git.Commit, Endpoint, error) {
	pos := func(e Endpoint) (int, error) {
		if e.Kind() == KindWorkingTree {
			return -1, nil
		}
		_, i, err := find(history, e.ID())
		return i, err
	}

	ia, err := pos(a)
	if err != nil {
		return git.Commit{}, Endpoint{}, err
	}
	ib, err := pos(b)
	if err != nil {
		return git.Commit{}, Endpoint{}, err
	}

	if ia < ib {
		return history[ib], a, nil
	}

	return history[ia], b, nil
}

func find(history []git.Commit, id string) (git.Commit, int, error) {
	for i, c := range history {
		if c.Hash == id || c.ShortHash == id || (c.Ref != "" && c.Ref == id) {
			return c, i, nil
		}
	}

	return git.Commit{}, -1, fmt.Errorf("%w: %s", ErrUnknownRevision, id)
}
