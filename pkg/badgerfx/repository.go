package badgerfx

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type EntityFactory[T Entity] func() T

// Repository reads and writes entities of one kind inside caller-owned
// transactions.
type Repository[T Entity] struct {
	key     KeyFunc
	factory EntityFactory[T]
}

func NewRepository[T Entity](key KeyFunc, factory EntityFactory[T]) *Repository[T] {
	return &Repository[T]{
		key:     key,
		factory: factory,
	}
}

func (r *Repository[T]) List(txn *badger.Txn, prefix string, options badger.IteratorOptions) ([]T, error) {
	validPrefix := []byte(prefix)
	seekPrefix := []byte(prefix)
	if options.Reverse {
		seekPrefix = append(seekPrefix, SeekEnd)
	}

	it := txn.NewIterator(options)
	defer it.Close()

	var entities []T
	for it.Seek(seekPrefix); it.ValidForPrefix(validPrefix); it.Next() {
		entity, err := r.decode(it.Item())
		if err != nil {
			return nil, err
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

func (r *Repository[T]) Read(txn *badger.Txn, id string) (T, error) {
	return r.get(txn, []byte(r.key(id)))
}

func (r *Repository[T]) ReadByIndex(txn *badger.Txn, index string) (T, error) {
	var zero T

	item, err := txn.Get([]byte(index))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, index)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get entity index: %w", err)
	}

	key, err := item.ValueCopy(nil)
	if err != nil {
		return zero, fmt.Errorf("failed to get entity key: %w", err)
	}

	return r.get(txn, key)
}

// Exists reports whether index is set.
func (r *Repository[T]) Exists(txn *badger.Txn, index string) (bool, error) {
	_, err := txn.Get([]byte(index))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	}

	return false, fmt.Errorf("failed to check entity index: %w", err)
}

func (r *Repository[T]) Write(txn *badger.Txn, entity T) error {
	data, err := entity.MarshalStorage()
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	if indexErr := r.CreateIndexes(txn, entity); indexErr != nil {
		return indexErr
	}

	if setErr := txn.Set([]byte(entity.StorageKey()), data); setErr != nil {
		return fmt.Errorf("failed to update entity: %w", setErr)
	}

	return nil
}

func (r *Repository[T]) Delete(txn *badger.Txn, id string) error {
	entity, err := r.Read(txn, id)
	if err != nil {
		return err
	}

	if indexErr := r.DeleteIndexes(txn, entity); indexErr != nil {
		return indexErr
	}

	if delErr := txn.Delete([]byte(entity.StorageKey())); delErr != nil {
		return fmt.Errorf("failed to delete entity: %w", delErr)
	}

	return nil
}

func (r *Repository[T]) CreateIndexes(txn *badger.Txn, entity T) error {
	key := []byte(entity.StorageKey())
	for _, index := range entity.StorageIndexes() {
		if err := txn.Set([]byte(index), key); err != nil {
			return fmt.Errorf("failed to set entity index: %w", err)
		}
	}

	return nil
}

func (r *Repository[T]) DeleteIndexes(txn *badger.Txn, entity T) error {
	for _, index := range entity.StorageIndexes() {
		if err := txn.Delete([]byte(index)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to delete entity index: %w", err)
		}
	}

	return nil
}

func (r *Repository[T]) get(txn *badger.Txn, key []byte) (T, error) {
	var zero T

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get entity: %w", err)
	}

	return r.decode(item)
}

func (r *Repository[T]) decode(item *badger.Item) (T, error) {
	var zero T

	entity := r.factory()
	if err := item.Value(func(val []byte) error {
		return entity.UnmarshalStorage(val)
	}); err != nil {
		return zero, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	return entity, nil
}
