// =============================
// File: internal/codec/discriminator.go
// =============================
package codec

import (
	"crypto/sha256"
	"encoding/hex"
)

// DiscriminatorSize is the length of the tag that prefixes every record.
const DiscriminatorSize = 8

// Discriminator identifies a record type.
type Discriminator [DiscriminatorSize]byte

func (d Discriminator) String() string { return hex.EncodeToString(d[:]) }

// Matches reports whether data starts with d.
func (d Discriminator) Matches(data []byte) bool {
	return len(data) >= DiscriminatorSize && Discriminator(data[:DiscriminatorSize]) == d
}

// NewDiscriminator derives the tag for name within namespace, i.e. the first
// eight bytes of sha256("<namespace>:<name>").
func NewDiscriminator(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// EventDiscriminator is NewDiscriminator("event", name).
func EventDiscriminator(name string) Discriminator {
	return NewDiscriminator("event", name)
}

// AccountDiscriminator is NewDiscriminator("account", name).
func AccountDiscriminator(name string) Discriminator {
	return NewDiscriminator("account", name)
}
