package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signerFunc func(ctx context.Context, req *gold.Request) (solana.Signature, error)

func (f signerFunc) SignAndSubmit(ctx context.Context, req *gold.Request) (solana.Signature, error) {
	return f(ctx, req)
}

var req = &gold.Request{Operation: gold.OpSell}

func TestSubmit_Confirmed(t *testing.T) {
	c := NewClient(time.Second, zerolog.Nop())
	out := c.Submit(context.Background(), signerFunc(func(ctx context.Context, r *gold.Request) (solana.Signature, error) {
		return solana.Signature{7}, nil
	}), req)
	assert.Equal(t, Confirmed, out.Kind)
	assert.Equal(t, solana.Signature{7}, out.Signature)
	assert.True(t, out.Confirmed())
	assert.NoError(t, out.Error())
	assert.Empty(t, out.ErrorKind())
}

func TestSubmit_TimeoutIsUnknown(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := NewClient(30*time.Millisecond, zerolog.Nop())

	start := time.Now()
	out := c.Submit(context.Background(), signerFunc(func(ctx context.Context, r *gold.Request) (solana.Signature, error) {
		<-release
		return solana.Signature{1}, nil
	}), req)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, Unknown, out.Kind)
	assert.Equal(t, errs.KindSubmissionUnknown, out.ErrorKind())
	assert.ErrorIs(t, out.Error(), errs.ErrSubmissionUnknown)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		sig  solana.Signature
		err  error
		kind Kind
		ek   errs.Kind
	}{
		{"confirmed", solana.Signature{1}, nil, Confirmed, ""},
		{"no signature", solana.Signature{}, nil, Unknown, errs.KindSubmissionUnknown},
		{"user rejected", solana.Signature{}, errs.ErrUserRejected, Rejected, errs.KindUserRejected},
		{"signer unavailable", solana.Signature{}, errs.New(errs.KindSignerUnavailable, "locked"), Rejected, errs.KindSignerUnavailable},
		{"program error", solana.Signature{}, errs.Wrap(errs.KindSubmissionRejected, errors.New("0x1"), "send"), Rejected, errs.KindSubmissionRejected},
		{"foreign error", solana.Signature{}, errors.New("insufficient lamports"), Rejected, errs.KindSubmissionRejected},
		{"sent, unconfirmed", solana.Signature{2}, errs.Wrap(errs.KindSubmissionUnknown, context.DeadlineExceeded, "wait"), Unknown, errs.KindSubmissionUnknown},
		{"deadline", solana.Signature{}, context.DeadlineExceeded, Unknown, errs.KindSubmissionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.sig, tt.err)
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.ek, out.ErrorKind())
			if tt.kind == Unknown {
				assert.Equal(t, tt.sig, out.Signature)
			}
			if tt.kind == Rejected {
				require.Error(t, out.Error())
				assert.NotEmpty(t, out.Reason)
			}
		})
	}
}
