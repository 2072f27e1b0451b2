package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/egaotan/solana-gold/metrics"
	"github.com/egaotan/solana-gold/notify"
	"github.com/egaotan/solana-gold/opstatus"
	"github.com/egaotan/solana-gold/session"
	"github.com/egaotan/solana-gold/statesync"
	"github.com/egaotan/solana-gold/store"
	"github.com/egaotan/solana-gold/submit"
	"github.com/egaotan/solana-gold/utils"
	"github.com/egaotan/solana-gold/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const outcomeInvalid = "invalid"

type Builder interface {
	Build(id gold.Identity, op gold.Operation, in gold.Inputs) (*gold.Request, error)
}

type Submitter interface {
	Submit(ctx context.Context, signer submit.Signer, req *gold.Request) submit.Outcome
}

type Journal interface {
	StoreOperation(rec *store.OperationRecord)
}

type Notifier interface {
	Commit(e *notify.Event)
}

// Orchestrator runs one intent end to end: build, submit, refresh, report.
// Journal, Notifier and Metrics are optional.
type Orchestrator struct {
	logger    zerolog.Logger
	builder   Builder
	submitter Submitter
	sync      *statesync.Synchronizer
	sessions  *session.Manager
	board     *opstatus.Board

	Journal  Journal
	Notifier Notifier
	Metrics  *metrics.Metrics
}

func NewOrchestrator(builder Builder, submitter Submitter, sync *statesync.Synchronizer, sessions *session.Manager, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		logger:    logger.With().Str("component", "orchestrator").Logger(),
		builder:   builder,
		submitter: submitter,
		sync:      sync,
		sessions:  sessions,
	}
	o.board = opstatus.NewBoard(o.onStatus)
	sessions.OnDisconnect(func(s *session.Session) {
		sync.Release(s.Owner())
	})
	return o
}

func (o *Orchestrator) onStatus(op gold.Operation, s opstatus.Status) {
	o.logger.Debug().Str("operation", string(op)).Str("state", string(s.State)).Str("message", s.Message).Msg("status")
}

// Execute runs op with the raw inputs and returns the terminal status. A second
// invocation while op is pending fails with errs.ErrOperationInProgress and
// leaves the pending one alone.
func (o *Orchestrator) Execute(ctx context.Context, op gold.Operation, in gold.Inputs) (opstatus.Status, error) {
	tracker, ok := o.board.Tracker(op)
	if !ok {
		return opstatus.Status{}, errs.InvalidInput("operation", "unknown operation "+string(op))
	}
	if err := tracker.Begin(); err != nil {
		var ite *opstatus.InvalidTransitionError
		if errors.As(err, &ite) && ite.From == opstatus.Pending {
			if o.Metrics != nil {
				o.Metrics.OperationsBusy.WithLabelValues(string(op)).Inc()
			}
			return tracker.Status(), errs.ErrOperationInProgress
		}
		return tracker.Status(), err
	}
	start := time.Now()
	sess := o.sessions.Current()
	rec := &store.OperationRecord{
		Id:        uuid.New().String(),
		Operation: string(op),
		StartTime: start.UnixMilli(),
	}
	if sess != nil {
		rec.SessionId = sess.ID()
	}
	if signer, ok := sess.ActiveAddress(); ok {
		rec.Signer = signer.String()
	}

	req, err := o.builder.Build(sess, op, in)
	if err != nil {
		kind := errs.KindOf(err)
		if kind == "" {
			kind = errs.KindInvalidInput
		}
		_ = tracker.Fail(kind, "Error: "+err.Error())
		rec.Args = marshalArgs(in)
		o.finish(tracker, rec, outcomeInvalid, start)
		return tracker.Status(), err
	}
	rec.Args = marshalArgs(req.Args)

	// The request is out of this layer's hands once submitted.
	ctx = context.WithoutCancel(ctx)
	// Signed by the session the request was built for.
	outcome := o.submitter.Submit(ctx, sess, req)
	if !outcome.Signature.IsZero() {
		rec.Signature = outcome.Signature.String()
	}

	switch outcome.Kind {
	case submit.Confirmed:
		// Balances only while the signer is still the connected wallet.
		owner, ok := o.sessions.ActiveAddress()
		if !ok || !owner.Equals(req.Signer) {
			owner = solana.PublicKey{}
		}
		_, refreshErr := o.sync.RefreshAfter(ctx, outcome, owner)
		if o.Metrics != nil {
			o.Metrics.ObserveRefresh("post_submit", refreshErr)
		}
		message := "Success! Tx: " + utils.ShortSig(outcome.Signature.String())
		if refreshErr != nil {
			message += " (balances may be stale: " + refreshErr.Error() + ")"
		}
		_ = tracker.Succeed(outcome.Signature.String(), message)
	case submit.Unknown:
		message := "Error: transaction outcome unknown"
		if !outcome.Signature.IsZero() {
			message = fmt.Sprintf("Error: transaction %s outcome unknown, check it before retrying", outcome.Signature)
		}
		_ = tracker.Fail(outcome.ErrorKind(), message)
	default:
		_ = tracker.Fail(outcome.ErrorKind(), "Error: "+outcome.Reason)
	}
	o.finish(tracker, rec, string(outcome.Kind), start)
	return tracker.Status(), outcome.Error()
}

func (o *Orchestrator) finish(tracker *opstatus.Tracker, rec *store.OperationRecord, outcome string, start time.Time) {
	status := tracker.Status()
	rec.Outcome = outcome
	rec.ErrorKind = string(status.Kind)
	rec.Message = status.Message
	rec.FinishTime = status.UpdatedAt.UnixMilli()

	o.logger.Info().
		Str("operation", rec.Operation).
		Str("outcome", outcome).
		Str("signature", rec.Signature).
		Str("message", rec.Message).
		Msg("operation finished")
	if o.Journal != nil {
		o.Journal.StoreOperation(rec)
	}
	if o.Notifier != nil && outcome != outcomeInvalid {
		o.Notifier.Commit(&notify.Event{
			Operation: rec.Operation,
			Outcome:   outcome,
			Signer:    rec.Signer,
			Signature: rec.Signature,
			Message:   rec.Message,
			At:        status.UpdatedAt,
		})
	}
	if o.Metrics != nil {
		o.Metrics.ObserveOperation(rec.Operation, outcome, time.Since(start))
	}
}

func marshalArgs(args interface{}) string {
	if args == nil {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(data)
}

// Refresh is the manual refresh of the current session's snapshots.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	owner, _ := o.sessions.ActiveAddress()
	err := o.sync.Refresh(ctx, owner)
	if o.Metrics != nil {
		o.Metrics.ObserveRefresh("manual", err)
	}
	return err
}

// Connect starts a session for w and runs the initial load. A failed load
// only marks the snapshots stale.
func (o *Orchestrator) Connect(ctx context.Context, w wallet.Wallet) (*session.Session, error) {
	s, err := o.sessions.Connect(w)
	if err != nil {
		return nil, err
	}
	owner, _ := s.ActiveAddress()
	err = o.sync.InitialLoad(ctx, owner)
	if o.Metrics != nil {
		o.Metrics.ObserveRefresh("initial", err)
	}
	return s, nil
}

func (o *Orchestrator) Disconnect() {
	o.sessions.Disconnect()
}

func (o *Orchestrator) Owner() (solana.PublicKey, bool) {
	return o.sessions.ActiveAddress()
}

func (o *Orchestrator) Status() map[gold.Operation]opstatus.Status {
	return o.board.Snapshot()
}

func (o *Orchestrator) Synchronizer() *statesync.Synchronizer {
	return o.sync
}

func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}
