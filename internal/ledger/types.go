// internal/ledger/types.go
package ledger

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// DefaultPageLimit is used when Page.Limit is not set.
const DefaultPageLimit = 50

var (
	ErrAccountNotFound      = errors.New("ledger: account not found")
	ErrAccountExists        = errors.New("ledger: account already exists")
	ErrNotLocked            = errors.New("ledger: key not declared in access list")
	ErrInsufficientLamports = errors.New("ledger: insufficient lamports")
	ErrInsufficientTokens   = errors.New("ledger: insufficient token balance")
	ErrBalanceOverflow      = errors.New("ledger: balance overflow")
	ErrTxClosed             = errors.New("ledger: transaction already finished")
)

// Account is a keyed record: a native balance plus opaque program data.
type Account struct {
	Key      solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

func (a Account) clone() *Account {
	c := a
	if a.Data != nil {
		c.Data = append([]byte(nil), a.Data...)
	}
	return &c
}

// TokenAccount holds the balance of one owner for one mint.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// Entry is one record of the append-only log.
type Entry struct {
	ID       uuid.UUID
	Seq      uint64
	Time     time.Time
	Accounts []solana.PublicKey
	Data     []byte
}

// Mentions reports whether the entry references key.
func (e Entry) Mentions(key solana.PublicKey) bool {
	for _, k := range e.Accounts {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

// Page selects a window of the log. Before is an exclusive upper bound on Seq;
// zero means "from the newest entry".
type Page struct {
	Limit  int
	Before uint64
}

func (p Page) limit() int {
	if p.Limit <= 0 {
		return DefaultPageLimit
	}
	return p.Limit
}

// Access lists the keys an update is allowed to write.
type Access []solana.PublicKey

// normalize returns the keys deduplicated and in canonical order so that
// overlapping updates always acquire locks the same way.
func (a Access) normalize() []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(a))
	seen := make(map[solana.PublicKey]struct{}, len(a))
	for _, k := range a {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}

// Reader is the read side shared by snapshots and transactions.
type Reader interface {
	Exists(key solana.PublicKey) bool
	Account(key solana.PublicKey) (Account, error)
	Lamports(key solana.PublicKey) uint64
	TokenBalance(mint, owner solana.PublicKey) (uint64, error)
	Supply(mint solana.PublicKey) uint64
}

// Store is the account substrate the protocol runs on.
type Store interface {
	// Update runs fn with exclusive access to the declared keys. Writes are
	// staged and committed together when fn returns nil; any error discards
	// them.
	Update(ctx context.Context, access Access, fn func(tx *Tx) error) error
	// View runs fn against a consistent snapshot of committed state.
	View(ctx context.Context, fn func(r Reader) error) error
	// Entries returns log entries mentioning account, newest first.
	Entries(ctx context.Context, account solana.PublicKey, page Page) ([]Entry, error)
	// Tail returns up to limit entries with Seq > after, in commit order.
	Tail(ctx context.Context, after uint64, limit int) ([]Entry, error)
}

// TokenAccountAddress derives the custody address of owner's balance of mint.
func TokenAccountAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	return addr, err
}
