package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var CheckInterval = 500 * time.Millisecond

// TransactionError is a transaction that landed and failed.
type TransactionError struct {
	Signature solana.Signature
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// IsRejection reports errors meaning the cluster definitively refused the
// transaction: a preflight rpc error or a failed execution.
func IsRejection(err error) bool {
	var rpcErr *jsonrpc.RPCError
	var txErr *TransactionError
	return errors.As(err, &rpcErr) || errors.As(err, &txErr)
}

// Send submits a signed transaction to the preferred node, with preflight.
func (backend *Backend) Send(ctx context.Context, trx *solana.Transaction) (solana.Signature, error) {
	signature, err := backend.preferredClient().SendTransactionWithOpts(ctx, trx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: backend.commitment,
	})
	if err != nil {
		backend.logger.Warn().Err(err).Msg("SendTransactionWithOpts err")
		return solana.Signature{}, err
	}
	backend.logger.Info().Str("signature", signature.String()).Msg("transaction sent")
	return signature, nil
}

// WaitConfirmed polls the signature status until it reaches confirmed
// commitment, fails, or ctx ends.
func (backend *Backend) WaitConfirmed(ctx context.Context, signature solana.Signature) error {
	ticker := time.NewTicker(CheckInterval)
	defer ticker.Stop()
	for {
		done, err := backend.checkSignature(ctx, signature)
		if done {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (backend *Backend) checkSignature(ctx context.Context, signature solana.Signature) (bool, error) {
	var status *rpc.SignatureStatusesResult
	err := backend.executeWithFailover(ctx, "get_signature_statuses", func(client *rpc.Client) error {
		response, err := client.GetSignatureStatuses(ctx, true, signature)
		if err != nil {
			return err
		}
		if len(response.Value) > 0 {
			status = response.Value[0]
		}
		return nil
	}, nil)
	if err != nil {
		backend.logger.Debug().Err(err).Str("signature", signature.String()).Msg("check err")
		return false, nil
	}
	if status == nil {
		return false, nil
	}
	if status.Err != nil {
		return true, &TransactionError{Signature: signature, Err: status.Err}
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		backend.logger.Info().Str("signature", signature.String()).Uint64("slot", status.Slot).Msg("transaction confirmed")
		return true, nil
	}
	return false, nil
}
