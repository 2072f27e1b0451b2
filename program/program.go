package program

import "github.com/gagliardetto/solana-go"

var (
	System          = solana.SystemProgramID
	Token           = solana.TokenProgramID
	AssociatedToken = solana.SPLAssociatedTokenAccountProgramID
)

var (
	// PythPushOracle owns the sponsored price feed accounts, one per (shard, feed id).
	PythPushOracle = solana.MustPublicKeyFromBase58("pythWSnswVUd12oZpeFP8e9CVaEqJg25g1Vtc2biRsT")
)

var (
	USDCMainnet = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)
