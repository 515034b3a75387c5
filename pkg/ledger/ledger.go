// Package ledger does the credit accounting for council sessions: one credit
// reserved per accepted request, refunded only when the whole request
// produced nothing, granted on session creation and purchases.
//
// Mutations are read-modify-write against the durable user record,
// serialized per session by a striped lock so two concurrent submissions
// from the same session cannot both spend the last credit. Cross-process
// consistency is out of scope; the council runs single-process.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/sagecouncil/council/pkg/store"
)

// ErrInsufficientCredit is returned by Reserve when the balance is zero.
var ErrInsufficientCredit = errors.New("ledger: insufficient credit")

// ErrUnknownSession is returned for sessions with no user record.
var ErrUnknownSession = errors.New("ledger: unknown session")

const stripes = 64

// Ledger mediates all credit mutations.
type Ledger struct {
	store *store.Store
	locks [stripes]sync.Mutex
}

// New builds a ledger over the user store.
func New(st *store.Store) *Ledger {
	return &Ledger{store: st}
}

func (l *Ledger) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &l.locks[h.Sum32()%stripes]
}

func (l *Ledger) load(ctx context.Context, sessionID string) (*store.User, error) {
	u, err := l.store.GetUser(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return u, err
}

// Balance returns the current credit balance.
func (l *Ledger) Balance(ctx context.Context, sessionID string) (int, error) {
	mu := l.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	u, err := l.load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// Reserve takes one credit. It is hard-denied at zero: the balance is never
// driven negative, even by concurrent submissions.
func (l *Ledger) Reserve(ctx context.Context, sessionID string) error {
	mu := l.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	u, err := l.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if u.Credits <= 0 {
		return ErrInsufficientCredit
	}
	u.Credits--
	return l.store.PutUser(ctx, u)
}

// Refund returns one credit taken by Reserve. Callers guarantee at-most-once
// per reservation; the ledger does not track individual reservations.
func (l *Ledger) Refund(ctx context.Context, sessionID string) error {
	return l.Grant(ctx, sessionID, 1)
}

// Grant adds n credits, e.g. on a purchase.
func (l *Ledger) Grant(ctx context.Context, sessionID string, n int) error {
	if n <= 0 {
		return fmt.Errorf("ledger: grant of %d credits", n)
	}
	mu := l.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	u, err := l.load(ctx, sessionID)
	if err != nil {
		return err
	}
	u.Credits += n
	return l.store.PutUser(ctx, u)
}
