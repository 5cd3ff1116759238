// Package pumpfun trades tokens on the Pump.fun bonding curve program on Solana.
//
// This package provides:
// - Constant-product pricing against the virtual reserves of a bonding curve.
// - Program-derived address derivation for every account a swap touches.
// - Buy and sell instruction encoding in the program's account order.
// - Trade preparation, submission and confirmation polling.
//
// Key Types and Functions:
//
// - Trader: prepares and executes buys and sells for one wallet.
// - ChainAccounts: reads bonding curves and token balances over RPC.
// - BuildBuyInstruction(), BuildSellInstruction(): pure instruction builders.
// - TokensForSol(), SolForTokens(), SpotPrice(): curve math in whole units.
// - FindProgramAddress(): PDA search with bump 255 down to 0.
//
// Files:
//   - curve.go: pricing and raw unit conversion.
//   - pda.go: address derivation.
//   - instructions.go: swap instruction encoding and decoding.
//   - trade.go, confirm.go: transaction assembly, submission and polling.
//   - accounts.go: RPC-backed AccountReader.
//
// Usage example:
//
//	accounts := pumpfun.NewChainAccounts(client, logger)
//	trader := pumpfun.NewTrader(accounts, client, w, pumpfun.GetDefaultConfig(), logger)
//	res, err := trader.Buy(ctx, mint, 0.01, 5)
//	if res != nil && res.Outcome == pumpfun.OutcomeIndeterminate {
//		// signature was sent but never observed; do not resubmit blindly
//	}
package pumpfun
