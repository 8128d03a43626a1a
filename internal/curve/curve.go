// =============================
// File: internal/curve/curve.go
// =============================

// Package curve holds the constant-product swap math used by every bonding
// curve. All functions are pure and work in base units only: the products are
// formed in 256-bit space so no realistic reserve pair can overflow before the
// division.
package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// BpsDenominator is 100% expressed in basis points.
const BpsDenominator = 10_000

var (
	// ErrDivisionByZero is returned when a denominator collapses to zero.
	ErrDivisionByZero = errors.New("curve: division by zero")
	// ErrOverflow is returned when a quotient does not fit into uint64.
	ErrOverflow = errors.New("curve: result overflows uint64")
)

// MulDivFloor returns floor(a*b/d) computed with a 256-bit intermediate.
func MulDivFloor(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	x := uint256.NewInt(a)
	x.Mul(x, uint256.NewInt(b))
	x.Div(x, uint256.NewInt(d))
	if !x.IsUint64() {
		return 0, ErrOverflow
	}
	return x.Uint64(), nil
}

// ApplyBps returns floor(amount*bps/10000).
func ApplyBps(amount uint64, bps uint16) (uint64, error) {
	return MulDivFloor(amount, uint64(bps), BpsDenominator)
}

// BuyOut returns the tokens paid out for solIn lamports (already net of fees):
//
//	tokenOut = virtualToken * solIn / (virtualSol + solIn)
func BuyOut(virtualSol, virtualToken, solIn uint64) (uint64, error) {
	den := uint256.NewInt(virtualSol)
	den.Add(den, uint256.NewInt(solIn))
	return mulDivWide(virtualToken, solIn, den)
}

// SellOut returns the lamports paid out for tokenIn tokens (before fees):
//
//	solOut = virtualSol * tokenIn / (virtualToken + tokenIn)
func SellOut(tokenIn, virtualSol, virtualToken uint64) (uint64, error) {
	den := uint256.NewInt(virtualToken)
	den.Add(den, uint256.NewInt(tokenIn))
	return mulDivWide(virtualSol, tokenIn, den)
}

// mulDivWide divides by a denominator that may itself exceed 64 bits.
func mulDivWide(a, b uint64, den *uint256.Int) (uint64, error) {
	if den.IsZero() {
		return 0, ErrDivisionByZero
	}
	num := uint256.NewInt(a)
	num.Mul(num, uint256.NewInt(b))
	num.Div(num, den)
	if !num.IsUint64() {
		return 0, ErrOverflow
	}
	return num.Uint64(), nil
}

