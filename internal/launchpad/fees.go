// internal/launchpad/fees.go
package launchpad

import (
	"fmt"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

// FeeSplit is how one trade's fee is distributed. Creator+Referral+Protocol
// always equals Total; floor remainders land in Protocol.
type FeeSplit struct {
	Total    uint64
	Creator  uint64
	Referral uint64
	Protocol uint64
}

// SplitFee charges tradeFeeBps on amount and splits the fee. The referral
// share applies to what is left after the creator share and is only taken
// when withReferral is set.
func SplitFee(amount uint64, g *GlobalConfig, withReferral bool) (FeeSplit, error) {
	fee, err := curve.ApplyBps(amount, g.TradeFeeBps)
	if err != nil {
		return FeeSplit{}, mathErr(err)
	}
	return splitTotal(fee, g.CreatorShareBps, g.ReferralShareBps, withReferral)
}

func splitTotal(fee uint64, creatorBps, referralBps uint16, withReferral bool) (FeeSplit, error) {
	creator, err := curve.ApplyBps(fee, creatorBps)
	if err != nil {
		return FeeSplit{}, mathErr(err)
	}
	if creator > fee {
		return FeeSplit{}, fmt.Errorf("%w: creator share %d exceeds fee %d", ErrInvalidBps, creator, fee)
	}
	remainder := fee - creator

	var referral uint64
	if withReferral {
		if referral, err = curve.ApplyBps(remainder, referralBps); err != nil {
			return FeeSplit{}, mathErr(err)
		}
		if referral > remainder {
			return FeeSplit{}, fmt.Errorf("%w: referral share %d exceeds remainder %d", ErrInvalidBps, referral, remainder)
		}
	}
	return FeeSplit{
		Total:    fee,
		Creator:  creator,
		Referral: referral,
		Protocol: remainder - referral,
	}, nil
}
