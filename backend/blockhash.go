package backend

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

func (backend *Backend) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var blockhash solana.Hash
	err := backend.executeWithFailover(ctx, "get_latest_blockhash", func(client *rpc.Client) error {
		response, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		blockhash = response.Value.Blockhash
		backend.logger.Debug().Str("blockhash", blockhash.String()).Uint64("slot", response.Context.Slot).Msg("latest block hash")
		return nil
	}, nil)
	return blockhash, err
}
