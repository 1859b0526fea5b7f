package badgerfx_test

import (
	"encoding/json"
	"testing"

	"github.com/chigichan24/duff/pkg/badgerfx"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	notePrefix  = "note:id:"
	noteByTitle = "note:title:"
)

type note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func noteKey(id string) string { return notePrefix + id }

func (n *note) StorageKey() string                 { return noteKey(n.ID) }
func (n *note) StorageIndexes() []string           { return []string{noteByTitle + n.Title} }
func (n *note) MarshalStorage() ([]byte, error)    { return json.Marshal(n) }
func (n *note) UnmarshalStorage(data []byte) error { return json.Unmarshal(data, n) }

func newDB(t *testing.T) *badger.DB {
	t.Helper()

	db, err := badgerfx.New(badgerfx.Config{InMemory: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestRepository(t *testing.T) {
	db := newDB(t)
	repo := badgerfx.NewRepository(noteKey, func() *note { return &note{} })

	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		if err := repo.Write(txn, &note{ID: "1", Title: "first"}); err != nil {
			return err
		}
		return repo.Write(txn, &note{ID: "2", Title: "second"})
	}))

	require.NoError(t, db.View(func(txn *badger.Txn) error {
		n, err := repo.Read(txn, "2")
		require.NoError(t, err)
		assert.Equal(t, "second", n.Title)

		n, err = repo.ReadByIndex(txn, noteByTitle+"first")
		require.NoError(t, err)
		assert.Equal(t, "1", n.ID)

		ok, err := repo.Exists(txn, noteByTitle+"second")
		require.NoError(t, err)
		assert.True(t, ok)

		all, err := repo.List(txn, notePrefix, badger.DefaultIteratorOptions)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		rev, err := repo.List(txn, notePrefix, opts)
		require.NoError(t, err)
		require.Len(t, rev, 2)
		assert.Equal(t, "2", rev[0].ID)

		_, err = repo.Read(txn, "3")
		assert.ErrorIs(t, err, badgerfx.ErrNotFound)

		return nil
	}))

	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return repo.Delete(txn, "1")
	}))

	require.NoError(t, db.View(func(txn *badger.Txn) error {
		_, err := repo.ReadByIndex(txn, noteByTitle+"first")
		assert.ErrorIs(t, err, badgerfx.ErrNotFound)

		ok, err := repo.Exists(txn, noteByTitle+"first")
		require.NoError(t, err)
		assert.False(t, ok)

		return nil
	}))
}

func TestRepository_DeleteMissing(t *testing.T) {
	db := newDB(t)
	repo := badgerfx.NewRepository(noteKey, func() *note { return &note{} })

	err := db.Update(func(txn *badger.Txn) error {
		return repo.Delete(txn, "nope")
	})
	assert.ErrorIs(t, err, badgerfx.ErrNotFound)
}
