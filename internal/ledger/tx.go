// internal/ledger/tx.go
package ledger

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Tx is the write handle passed to Store.Update. It is only valid inside the
// callback and must not be retained.
type Tx struct {
	m      *Memory
	locked map[solana.PublicKey]struct{}
	now    time.Time
	done   bool

	accounts map[solana.PublicKey]*Account
	base     map[solana.PublicKey]uint64 // lamports when first staged
	deposits map[solana.PublicKey]uint64
	tokens   map[solana.PublicKey]*TokenAccount
	supply   map[solana.PublicKey]uint64
	entries  []Entry
}

func newTx(m *Memory, keys []solana.PublicKey) *Tx {
	locked := make(map[solana.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		locked[k] = struct{}{}
	}
	return &Tx{
		m:        m,
		locked:   locked,
		now:      m.now(),
		accounts: make(map[solana.PublicKey]*Account),
		base:     make(map[solana.PublicKey]uint64),
		deposits: make(map[solana.PublicKey]uint64),
		tokens:   make(map[solana.PublicKey]*TokenAccount),
		supply:   make(map[solana.PublicKey]uint64),
	}
}

func (tx *Tx) close() { tx.done = true }

// Now returns the timestamp shared by everything the update writes.
func (tx *Tx) Now() time.Time { return tx.now }

func (tx *Tx) checkWrite(key solana.PublicKey) error {
	if tx.done {
		return ErrTxClosed
	}
	if _, ok := tx.locked[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotLocked, key)
	}
	return nil
}

// load returns the staged account for key, or a copy of the committed one.
func (tx *Tx) load(key solana.PublicKey) (*Account, bool) {
	if acc, ok := tx.accounts[key]; ok {
		return acc, true
	}
	// копируем под локом: commit может подменить запись параллельно
	tx.m.mu.RLock()
	defer tx.m.mu.RUnlock()
	acc, ok := tx.m.accounts[key]
	if !ok {
		return nil, false
	}
	return acc.clone(), true
}

// stage returns a writable copy of key's account, creating an empty one.
func (tx *Tx) stage(key solana.PublicKey) (*Account, error) {
	if err := tx.checkWrite(key); err != nil {
		return nil, err
	}
	if acc, ok := tx.accounts[key]; ok {
		return acc, nil
	}
	acc, ok := tx.load(key)
	if !ok {
		acc = &Account{Key: key}
	}
	tx.accounts[key] = acc
	tx.base[key] = acc.Lamports
	return acc, nil
}

// Exists reports whether key holds initialised data.
func (tx *Tx) Exists(key solana.PublicKey) bool {
	acc, ok := tx.load(key)
	return ok && acc.Data != nil
}

// Account returns a copy of key's record.
func (tx *Tx) Account(key solana.PublicKey) (Account, error) {
	acc, ok := tx.load(key)
	if !ok || acc.Data == nil {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return *acc.clone(), nil
}

// Create initialises key with data. It fails if key already holds data.
func (tx *Tx) Create(key, owner solana.PublicKey, data []byte) error {
	acc, err := tx.stage(key)
	if err != nil {
		return err
	}
	if acc.Data != nil {
		return fmt.Errorf("%w: %s", ErrAccountExists, key)
	}
	acc.Owner = owner
	acc.Data = append([]byte{}, data...)
	return nil
}

// Put overwrites the data of an existing record.
func (tx *Tx) Put(key solana.PublicKey, data []byte) error {
	acc, err := tx.stage(key)
	if err != nil {
		return err
	}
	if acc.Data == nil {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	acc.Data = append(acc.Data[:0], data...)
	return nil
}

// Lamports returns key's native balance, including deposits staged by this
// update.
func (tx *Tx) Lamports(key solana.PublicKey) uint64 {
	var n uint64
	if acc, ok := tx.load(key); ok {
		n = acc.Lamports
	}
	return n + tx.deposits[key]
}

// Credit adds lamports to key.
func (tx *Tx) Credit(key solana.PublicKey, lamports uint64) error {
	acc, err := tx.stage(key)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(acc.Lamports, lamports, 0)
	if carry != 0 {
		return fmt.Errorf("%w: credit %d to %s", ErrBalanceOverflow, lamports, key)
	}
	acc.Lamports = sum
	return nil
}

// Debit removes lamports from key.
func (tx *Tx) Debit(key solana.PublicKey, lamports uint64) error {
	acc, err := tx.stage(key)
	if err != nil {
		return err
	}
	if acc.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientLamports, key, acc.Lamports, lamports)
	}
	acc.Lamports -= lamports
	return nil
}

// Deposit credits lamports to key without holding its lock. Deposits only
// ever add, so they are applied on top of whatever key holds at commit time.
func (tx *Tx) Deposit(key solana.PublicKey, lamports uint64) error {
	if tx.done {
		return ErrTxClosed
	}
	if lamports == 0 {
		return nil
	}
	if _, ok := tx.locked[key]; ok {
		return tx.Credit(key, lamports)
	}
	sum, carry := bits.Add64(tx.deposits[key], lamports, 0)
	if carry != 0 {
		return fmt.Errorf("%w: deposit %d to %s", ErrBalanceOverflow, lamports, key)
	}
	tx.deposits[key] = sum
	return nil
}

// Transfer moves lamports between two locked keys.
func (tx *Tx) Transfer(from, to solana.PublicKey, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	if err := tx.Debit(from, lamports); err != nil {
		return err
	}
	return tx.Credit(to, lamports)
}

func (tx *Tx) loadToken(addr solana.PublicKey) (*TokenAccount, bool) {
	if ta, ok := tx.tokens[addr]; ok {
		return ta, true
	}
	tx.m.mu.RLock()
	defer tx.m.mu.RUnlock()
	ta, ok := tx.m.tokens[addr]
	if !ok {
		return nil, false
	}
	c := *ta
	return &c, true
}

func (tx *Tx) stageToken(mint, owner solana.PublicKey) (*TokenAccount, error) {
	addr, err := TokenAccountAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive token account: %w", err)
	}
	if err := tx.checkWrite(addr); err != nil {
		return nil, err
	}
	ta, ok := tx.loadToken(addr)
	if !ok {
		ta = &TokenAccount{Address: addr, Mint: mint, Owner: owner}
	}
	tx.tokens[addr] = ta
	return ta, nil
}

// TokenBalance returns owner's balance of mint.
func (tx *Tx) TokenBalance(mint, owner solana.PublicKey) (uint64, error) {
	addr, err := TokenAccountAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %w", err)
	}
	if ta, ok := tx.loadToken(addr); ok {
		return ta.Amount, nil
	}
	return 0, nil
}

// Supply returns the minted supply of mint.
func (tx *Tx) Supply(mint solana.PublicKey) uint64 {
	if s, ok := tx.supply[mint]; ok {
		return s
	}
	tx.m.mu.RLock()
	defer tx.m.mu.RUnlock()
	return tx.m.supply[mint]
}

// MintTokens creates amount new units of mint in to's token account. The mint
// key and the destination token account must both be locked.
func (tx *Tx) MintTokens(mint, to solana.PublicKey, amount uint64) error {
	if err := tx.checkWrite(mint); err != nil {
		return err
	}
	supply, carry := bits.Add64(tx.Supply(mint), amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: supply of %s", ErrBalanceOverflow, mint)
	}
	ta, err := tx.stageToken(mint, to)
	if err != nil {
		return err
	}
	ta.Amount += amount
	tx.supply[mint] = supply
	return nil
}

// TransferTokens moves amount of mint from one owner to another.
func (tx *Tx) TransferTokens(mint, from, to solana.PublicKey, amount uint64) error {
	src, err := tx.stageToken(mint, from)
	if err != nil {
		return err
	}
	dst, err := tx.stageToken(mint, to)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientTokens, from, src.Amount, mint, amount)
	}
	if src == dst {
		return nil
	}
	// supply bounds every balance, so the credit cannot wrap
	src.Amount -= amount
	dst.Amount += amount
	return nil
}

// Emit appends a log record that becomes visible when the update commits.
func (tx *Tx) Emit(data []byte, accounts ...solana.PublicKey) error {
	if tx.done {
		return ErrTxClosed
	}
	tx.entries = append(tx.entries, Entry{
		ID:       uuid.New(),
		Time:     tx.now,
		Accounts: append([]solana.PublicKey(nil), accounts...),
		Data:     append([]byte(nil), data...),
	})
	return nil
}
