package seeker

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sagecouncil/council/pkg/kv"
)

// Cache persists the seeker's finished consultations and last known credit
// balance, keyed by session, so a restarted client can show its history
// without the server. The server record stays authoritative.
type Cache struct {
	kv kv.Store
}

// NewCache wraps a kv store.
func NewCache(s kv.Store) *Cache {
	return &Cache{kv: s}
}

func creditsKey(sessionID string) kv.Key {
	return kv.Key{"seeker", sessionID, "credits"}
}

func consultationKey(sessionID string, id int64) kv.Key {
	return kv.Key{"seeker", sessionID, "cons", fmt.Sprintf("%020d", id)}
}

// SaveConsultation stores one finished consultation.
func (c *Cache) SaveConsultation(ctx context.Context, sessionID string, cons *Consultation) error {
	data, err := msgpack.Marshal(cons)
	if err != nil {
		return fmt.Errorf("seeker: encode consultation %d: %w", cons.ID, err)
	}
	return c.kv.Set(ctx, consultationKey(sessionID, cons.ID), data)
}

// Consultations returns the cached history, oldest first.
func (c *Cache) Consultations(ctx context.Context, sessionID string) ([]*Consultation, error) {
	var out []*Consultation
	for e, err := range c.kv.List(ctx, kv.Key{"seeker", sessionID, "cons"}) {
		if err != nil {
			return nil, err
		}
		var cons Consultation
		if err := msgpack.Unmarshal(e.Value, &cons); err != nil {
			return nil, fmt.Errorf("seeker: decode consultation %s: %w", e.Key, err)
		}
		out = append(out, &cons)
	}
	return out, nil
}

// SaveCredits records the last confirmed balance.
func (c *Cache) SaveCredits(ctx context.Context, sessionID string, credits int) error {
	data, err := msgpack.Marshal(credits)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, creditsKey(sessionID), data)
}

// Credits returns the last recorded balance; ok is false when the session
// has never been cached.
func (c *Cache) Credits(ctx context.Context, sessionID string) (credits int, ok bool, err error) {
	data, err := c.kv.Get(ctx, creditsKey(sessionID))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if err := msgpack.Unmarshal(data, &credits); err != nil {
		return 0, false, err
	}
	return credits, true, nil
}
