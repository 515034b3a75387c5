// Package kv is the key-value layer backing the council's persisted state:
// user records and message history. Keys are hierarchical path segments
// (e.g. ["user", sessionID]) joined with '/'.
//
// Badger backs the server; Memory backs tests and ephemeral deployments.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded form. Segments must not
// contain it.
const Separator = "/"

// Key is a hierarchical path of string segments.
type Key []string

func (k Key) String() string {
	return strings.Join(k, Separator)
}

func encode(k Key) []byte {
	return []byte(k.String())
}

func decode(b []byte) Key {
	return Key(strings.Split(string(b), Separator))
}

// scanPrefix returns the encoded prefix used for List: non-empty prefixes get
// a trailing separator so ["a","b"] does not match ["a","bc"].
func scanPrefix(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return []byte(prefix.String() + Separator)
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with prefix iteration.
type Store interface {
	// Get retrieves the value for key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Absent keys are not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates entries under prefix in lexicographic key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases the store's resources.
	Close() error
}
