// Package launchpad implements the bonding-curve token launch protocol: a
// global configuration record, one constant-product curve per token, a
// referral ledger and the trade engine that ties them together.
//
// This package provides methods for:
// - Initialising and administering the protocol (Initialize, UpdateConfig, WithdrawFees).
// - Launching tokens (CreateToken, CreateAndBuyToken).
// - Trading against a curve (BuyToken, SellToken) with fee splitting and graduation.
// - Registering referrers and claiming their accrued fees.
// - Settling a graduated curve into a GraduationSink (Migrate).
//
// Every mutating operation runs as a single ledger.Store update: either all of
// its writes (curve, balances, referral, log records) commit or none do.
//
// Detailed information can be found in the respective source files:
//   - program.go: Program construction, options and read accessors.
//   - admin.go: Initialize, UpdateConfig, WithdrawFees.
//   - launch.go: CreateToken and CreateAndBuyToken.
//   - trade.go: BuyToken and SellToken.
//   - referral.go: RegisterReferral and ClaimReferralFees.
//   - migration.go: Migrate and the GraduationSink contract.
//   - fees.go, quote.go: fee split, quotes and display conversions.
//   - accounts.go, pda.go, types.go: account layouts and key derivation.
//
// Usage example:
//
//	store := ledger.NewMemory()
//	prog, err := launchpad.NewProgram(store, logger, launchpad.WithBus(bus))
//	if err != nil {
//	    return err
//	}
//	if err := prog.Initialize(ctx, authority); err != nil {
//	    return err
//	}
//	curve, err := prog.CreateToken(ctx, launchpad.CreateTokenParams{
//	    Creator: creator, Name: "Doge Classic", Symbol: "DOGEC", URI: uri,
//	})
package launchpad
