// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrNoKey is returned by Load when neither a key file nor a key is given.
var ErrNoKey = errors.New("no key configured")

// Wallet представляет ключевую пару Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return fromBytes(privateKeyBytes)
}

func fromBytes(b []byte) (*Wallet, error) {
	if len(b) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(b))
	}
	privateKey := solana.PrivateKey(b)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// LoadKeyFile читает ключ из файла: JSON-массив solana-keygen или base58-строка.
func LoadKeyFile(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		pk, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse keygen file: %w", err)
		}
		return fromBytes(pk)
	}
	return NewWallet(string(raw))
}

// Load prefers keyFile and falls back to the inline base58 key.
func Load(keyFile, key string) (*Wallet, error) {
	switch {
	case keyFile != "":
		return LoadKeyFile(keyFile)
	case key != "":
		return NewWallet(key)
	}
	return nil, ErrNoKey
}
