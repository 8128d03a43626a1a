// internal/ledger/memory.go
package ledger

import (
	"context"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Memory is an in-process Store. Updates on disjoint key sets run in
// parallel; updates sharing a key are applied one after another.
type Memory struct {
	mu        sync.RWMutex
	accounts  map[solana.PublicKey]*Account
	tokens    map[solana.PublicKey]*TokenAccount
	supply    map[solana.PublicKey]uint64
	log       []Entry
	byAccount map[solana.PublicKey][]int

	locksMu sync.Mutex
	locks   map[solana.PublicKey]chan struct{}

	now    func() time.Time
	logger *zap.Logger
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source stamped on log entries.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) MemoryOption {
	return func(m *Memory) { m.logger = logger.Named("ledger") }
}

// NewMemory creates an empty store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		accounts:  make(map[solana.PublicKey]*Account),
		tokens:    make(map[solana.PublicKey]*TokenAccount),
		supply:    make(map[solana.PublicKey]uint64),
		byAccount: make(map[solana.PublicKey][]int),
		locks:     make(map[solana.PublicKey]chan struct{}),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) keyLock(key solana.PublicKey) chan struct{} {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	return ch
}

// acquire locks keys in order and returns a release func. Waiting honours ctx.
func (m *Memory) acquire(ctx context.Context, keys []solana.PublicKey) (func(), error) {
	held := make([]chan struct{}, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, key := range keys {
		ch := m.keyLock(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, access Access, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys := access.normalize()
	release, err := m.acquire(ctx, keys)
	if err != nil {
		return fmt.Errorf("acquire account locks: %w", err)
	}
	defer release()

	tx := newTx(m, keys)
	defer tx.close()

	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx)
}

// commit publishes the staged writes. Locked accounts are applied as a delta
// against their staged base because unlocked deposits may have landed on them
// in the meantime.
func (m *Memory) commit(tx *Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	final := make(map[solana.PublicKey]uint64, len(tx.accounts)+len(tx.deposits))
	for key, acc := range tx.accounts {
		var current uint64
		if cur, ok := m.accounts[key]; ok {
			current = cur.Lamports
		}
		base := tx.base[key]
		if acc.Lamports >= base {
			sum, carry := bits.Add64(current, acc.Lamports-base, 0)
			if carry != 0 {
				return fmt.Errorf("%w: %s", ErrBalanceOverflow, key)
			}
			final[key] = sum
		} else {
			final[key] = current - (base - acc.Lamports)
		}
	}
	for key, amount := range tx.deposits {
		current, ok := final[key]
		if !ok {
			if cur, exists := m.accounts[key]; exists {
				current = cur.Lamports
			}
		}
		sum, carry := bits.Add64(current, amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: %s", ErrBalanceOverflow, key)
		}
		final[key] = sum
	}

	for key, acc := range tx.accounts {
		acc.Lamports = final[key]
		m.accounts[key] = acc
	}
	for key := range tx.deposits {
		if _, staged := tx.accounts[key]; staged {
			continue
		}
		// committed records are immutable; a deposit replaces the entry
		next := &Account{Key: key}
		if cur, ok := m.accounts[key]; ok {
			next = cur.clone()
		}
		next.Lamports = final[key]
		m.accounts[key] = next
	}
	for key, ta := range tx.tokens {
		m.tokens[key] = ta
	}
	for mint, s := range tx.supply {
		m.supply[mint] = s
	}
	for _, e := range tx.entries {
		e.Seq = uint64(len(m.log)) + 1
		idx := len(m.log)
		m.log = append(m.log, e)
		for _, k := range e.Accounts {
			m.byAccount[k] = append(m.byAccount[k], idx)
		}
	}

	if len(tx.entries) > 0 {
		m.logger.Debug("Update committed",
			zap.Int("accounts", len(tx.accounts)),
			zap.Int("entries", len(tx.entries)),
			zap.Uint64("head_seq", uint64(len(m.log))))
	}
	return nil
}

// View implements Store. fn must not call Update on the same store.
func (m *Memory) View(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(committed{m})
}

// Entries implements Store.
func (m *Memory) Entries(ctx context.Context, account solana.PublicKey, page Page) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.byAccount[account]
	limit := page.limit()
	out := make([]Entry, 0, min(limit, len(idx)))
	for i := len(idx) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.log[idx[i]]
		if page.Before != 0 && e.Seq >= page.Before {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Tail implements Store.
func (m *Memory) Tail(ctx context.Context, after uint64, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if after >= uint64(len(m.log)) {
		return nil, nil
	}
	end := min(uint64(len(m.log)), after+uint64(limit))
	out := make([]Entry, end-after)
	copy(out, m.log[after:end])
	return out, nil
}

// Head returns the sequence number of the newest entry.
func (m *Memory) Head() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.log))
}

// Airdrop credits lamports to key outside of any protocol operation.
func (m *Memory) Airdrop(ctx context.Context, key solana.PublicKey, lamports uint64) error {
	return m.Update(ctx, Access{key}, func(tx *Tx) error {
		return tx.Credit(key, lamports)
	})
}

// committed reads straight from the store; callers hold m.mu.
type committed struct{ m *Memory }

func (c committed) Exists(key solana.PublicKey) bool {
	acc, ok := c.m.accounts[key]
	return ok && acc.Data != nil
}

func (c committed) Account(key solana.PublicKey) (Account, error) {
	acc, ok := c.m.accounts[key]
	if !ok || acc.Data == nil {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return *acc.clone(), nil
}

func (c committed) Lamports(key solana.PublicKey) uint64 {
	if acc, ok := c.m.accounts[key]; ok {
		return acc.Lamports
	}
	return 0
}

func (c committed) TokenBalance(mint, owner solana.PublicKey) (uint64, error) {
	addr, err := TokenAccountAddress(owner, mint)
	if err != nil {
		return 0, err
	}
	if ta, ok := c.m.tokens[addr]; ok {
		return ta.Amount, nil
	}
	return 0, nil
}

func (c committed) Supply(mint solana.PublicKey) uint64 {
	return c.m.supply[mint]
}
