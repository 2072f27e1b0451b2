// Package submit hands built requests to the wallet and classifies what came
// back. It never retries.
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

type Kind string

const (
	Confirmed Kind = "confirmed"
	Rejected  Kind = "rejected"
	Unknown   Kind = "unknown"
)

// Outcome is exactly one of Confirmed(signature), Rejected(reason) or
// Unknown(signature if one was produced).
type Outcome struct {
	Kind      Kind
	Signature solana.Signature
	Reason    string
	Err       error
}

func (o Outcome) Confirmed() bool {
	return o.Kind == Confirmed
}

// ErrorKind maps the outcome onto the error taxonomy; "" when confirmed.
func (o Outcome) ErrorKind() errs.Kind {
	switch o.Kind {
	case Confirmed:
		return ""
	case Unknown:
		return errs.KindSubmissionUnknown
	}
	switch k := errs.KindOf(o.Err); k {
	case errs.KindUserRejected, errs.KindSignerUnavailable:
		return k
	}
	return errs.KindSubmissionRejected
}

// Error returns nil for a confirmed outcome.
func (o Outcome) Error() error {
	if o.Kind == Confirmed {
		return nil
	}
	return errs.Wrap(o.ErrorKind(), o.Err, o.Reason)
}

type Signer interface {
	SignAndSubmit(ctx context.Context, req *gold.Request) (solana.Signature, error)
}

type Client struct {
	logger  zerolog.Logger
	timeout time.Duration
}

func NewClient(timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		logger:  logger.With().Str("component", "submit").Logger(),
		timeout: timeout,
	}
}

type result struct {
	signature solana.Signature
	err       error
}

// Submit hands req to signer and waits at most the configured timeout. A
// signer that does not answer in time yields Unknown; its late answer is
// discarded.
func (c *Client) Submit(ctx context.Context, signer Signer, req *gold.Request) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		signature, err := signer.SignAndSubmit(ctx, req)
		done <- result{signature: signature, err: err}
	}()

	var outcome Outcome
	select {
	case r := <-done:
		outcome = Classify(r.signature, r.err)
	case <-ctx.Done():
		outcome = Outcome{Kind: Unknown, Reason: "no confirmation before timeout", Err: ctx.Err()}
	}
	c.logger.Info().
		Str("operation", string(req.Operation)).
		Str("outcome", string(outcome.Kind)).
		Str("signature", signatureString(outcome.Signature)).
		Str("reason", outcome.Reason).
		Msg("submitted")
	return outcome
}

// Classify turns a signer answer into an outcome.
func Classify(signature solana.Signature, err error) Outcome {
	if err == nil {
		if signature.IsZero() {
			return Outcome{Kind: Unknown, Reason: "signer returned no signature"}
		}
		return Outcome{Kind: Confirmed, Signature: signature}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errs.KindOf(err) == errs.KindSubmissionUnknown {
		return Outcome{Kind: Unknown, Signature: signature, Reason: err.Error(), Err: err}
	}
	return Outcome{Kind: Rejected, Reason: err.Error(), Err: err}
}

func signatureString(signature solana.Signature) string {
	if signature.IsZero() {
		return ""
	}
	return signature.String()
}
