// internal/launchpad/pda.go
package launchpad

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// FindGlobalAddress derives the GlobalConfig address.
func FindGlobalAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(GlobalSeed)}, programID)
}

// FindFeeVaultAddress derives the protocol fee vault address.
func FindFeeVaultAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(FeeVaultSeed)}, programID)
}

// FindBondingCurveAddress derives the curve address for mint.
func FindBondingCurveAddress(programID, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(BondingCurveSeed), mint.Bytes()}, programID)
}

// FindReferralAddress derives the referral address for a referrer wallet.
func FindReferralAddress(programID, user solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(ReferralSeed), user.Bytes()}, programID)
}

// FindMetadataAddress derives the metadata record address for mint.
func FindMetadataAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(MetadataSeed), TokenMetadataProgramID.Bytes(), mint.Bytes()},
		TokenMetadataProgramID,
	)
}

// GlobalAddress returns the GlobalConfig address.
func (p *Program) GlobalAddress() solana.PublicKey { return p.global }

// FeeVaultAddress returns the protocol fee vault address.
func (p *Program) FeeVaultAddress() solana.PublicKey { return p.feeVault }

// BondingCurveAddress returns the curve address for mint.
func (p *Program) BondingCurveAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindBondingCurveAddress(p.id, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive bonding curve address: %w", err)
	}
	return addr, nil
}

// ReferralAddress returns the referral address for user.
func (p *Program) ReferralAddress(user solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindReferralAddress(p.id, user)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive referral address: %w", err)
	}
	return addr, nil
}

// MetadataAddress returns the metadata address for mint.
func (p *Program) MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindMetadataAddress(mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}

// CurveTokenAccount returns the token account holding the curve's custody
// balance of mint.
func (p *Program) CurveTokenAccount(mint solana.PublicKey) (solana.PublicKey, error) {
	curve, err := p.BondingCurveAddress(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	ata, err := ledger.TokenAccountAddress(curve, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive curve token account: %w", err)
	}
	return ata, nil
}
