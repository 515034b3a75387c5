// Package store persists the council's durable records: one user per
// session, and the message history per session. Records are msgpack-encoded
// into a kv.Store; the layout is
//
//	user/<sessionID>            -> User
//	msg/<sessionID>/<paddedID>  -> Message
//
// Message ids are time-based and zero-padded in the key so prefix iteration
// yields history in submission order.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sagecouncil/council/pkg/kv"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// User is the per-session account record.
type User struct {
	SessionID string    `msgpack:"session_id"`
	Credits   int       `msgpack:"credits"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// Message is one submitted question with its per-sage responses. Responses
// holds the final text only; streaming partials are never persisted.
type Message struct {
	ID        int64             `msgpack:"id"`
	SessionID string            `msgpack:"session_id"`
	Content   string            `msgpack:"content"`
	Sages     []string          `msgpack:"sages"`
	Responses map[string]string `msgpack:"responses"`
	CreatedAt time.Time         `msgpack:"created_at"`
}

// Store reads and writes records.
type Store struct {
	kv kv.Store
}

// New wraps a kv store.
func New(s kv.Store) *Store {
	return &Store{kv: s}
}

func userKey(sessionID string) kv.Key {
	return kv.Key{"user", sessionID}
}

func messageKey(sessionID string, id int64) kv.Key {
	return kv.Key{"msg", sessionID, fmt.Sprintf("%020d", id)}
}

// GetUser loads the user for a session. Returns ErrNotFound if the session
// has never been seen.
func (s *Store) GetUser(ctx context.Context, sessionID string) (*User, error) {
	data, err := s.kv.Get(ctx, userKey(sessionID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var u User
	if err := msgpack.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("store: decode user %s: %w", sessionID, err)
	}
	return &u, nil
}

// PutUser stores a user record, overwriting any existing one.
func (s *Store) PutUser(ctx context.Context, u *User) error {
	data, err := msgpack.Marshal(u)
	if err != nil {
		return fmt.Errorf("store: encode user %s: %w", u.SessionID, err)
	}
	return s.kv.Set(ctx, userKey(u.SessionID), data)
}

// CreateUser creates the user record for a new session with the initial
// credit grant. Returns the existing record unchanged if one is already
// present.
func (s *Store) CreateUser(ctx context.Context, sessionID string, credits int) (*User, error) {
	if u, err := s.GetUser(ctx, sessionID); err == nil {
		return u, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	u := &User{
		SessionID: sessionID,
		Credits:   credits,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// PutMessage stores one message record.
func (s *Store) PutMessage(ctx context.Context, m *Message) error {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("store: encode message %d: %w", m.ID, err)
	}
	return s.kv.Set(ctx, messageKey(m.SessionID, m.ID), data)
}

// Messages returns the session's history in submission order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]*Message, error) {
	var out []*Message
	for e, err := range s.kv.List(ctx, kv.Key{"msg", sessionID}) {
		if err != nil {
			return nil, err
		}
		var m Message
		if err := msgpack.Unmarshal(e.Value, &m); err != nil {
			return nil, fmt.Errorf("store: decode message %s: %w", e.Key, err)
		}
		out = append(out, &m)
	}
	return out, nil
}
