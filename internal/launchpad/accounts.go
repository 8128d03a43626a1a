// internal/launchpad/accounts.go
package launchpad

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/rovshanmuradov/launchpad/internal/codec"
)

var (
	GlobalAccountDiscriminator        = codec.AccountDiscriminator("Global")
	BondingCurveAccountDiscriminator  = codec.AccountDiscriminator("BondingCurve")
	ReferralAccountDiscriminator      = codec.AccountDiscriminator("Referral")
	TokenMetadataAccountDiscriminator = codec.AccountDiscriminator("TokenMetadata")
)

func encodeAccount(d codec.Discriminator, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeAccount(d codec.Discriminator, data []byte, v interface{}) error {
	if !d.Matches(data) {
		return fmt.Errorf("invalid account discriminator: want %s", d)
	}
	if err := bin.NewBorshDecoder(data[codec.DiscriminatorSize:]).Decode(v); err != nil {
		return fmt.Errorf("decode account: %w", err)
	}
	return nil
}

// Marshal encodes the record as stored in the ledger.
func (g *GlobalConfig) Marshal() ([]byte, error) {
	return encodeAccount(GlobalAccountDiscriminator, *g)
}

// Marshal encodes the record as stored in the ledger.
func (c *BondingCurve) Marshal() ([]byte, error) {
	return encodeAccount(BondingCurveAccountDiscriminator, *c)
}

// Marshal encodes the record as stored in the ledger.
func (r *Referral) Marshal() ([]byte, error) {
	return encodeAccount(ReferralAccountDiscriminator, *r)
}

// Marshal encodes the record as stored in the ledger.
func (m *TokenMetadata) Marshal() ([]byte, error) {
	return encodeAccount(TokenMetadataAccountDiscriminator, *m)
}

// DecodeGlobalConfig parses a GlobalConfig account.
func DecodeGlobalConfig(data []byte) (*GlobalConfig, error) {
	var g GlobalConfig
	if err := decodeAccount(GlobalAccountDiscriminator, data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DecodeBondingCurve parses a BondingCurve account.
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	var c BondingCurve
	if err := decodeAccount(BondingCurveAccountDiscriminator, data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeReferral parses a Referral account.
func DecodeReferral(data []byte) (*Referral, error) {
	var r Referral
	if err := decodeAccount(ReferralAccountDiscriminator, data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeTokenMetadata parses a TokenMetadata account.
func DecodeTokenMetadata(data []byte) (*TokenMetadata, error) {
	var m TokenMetadata
	if err := decodeAccount(TokenMetadataAccountDiscriminator, data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
