// Package notify pushes terminal operation outcomes to a chat webhook.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const eventBuffer = 32

type Event struct {
	Operation string
	Outcome   string
	Signer    string
	Signature string
	Message   string
	At        time.Time
}

func (e *Event) Text() string {
	items := make([]string, 0, 6)
	items = append(items, "gold operation: ")
	items = append(items, fmt.Sprintf("operation: %s;", e.Operation))
	items = append(items, fmt.Sprintf("outcome: %s;", e.Outcome))
	if e.Signer != "" {
		items = append(items, fmt.Sprintf("signer: %s;", e.Signer))
	}
	if e.Signature != "" {
		items = append(items, fmt.Sprintf("signature: %s;", e.Signature))
	}
	if e.Message != "" {
		items = append(items, fmt.Sprintf("message: %s;", e.Message))
	}
	items = append(items, fmt.Sprintf("time: %s;", e.At.Format("2006-01-02 15:04:05")))
	return strings.Join(items, "\n")
}

type Sender interface {
	Notify(ctx context.Context, notify *DingNotify) (*DingResult, error)
}

type Notifier struct {
	ctx    context.Context
	wg     sync.WaitGroup
	logger zerolog.Logger
	events chan *Event
	sdk    Sender
}

func NewNotifier(ctx context.Context, sdk Sender, logger zerolog.Logger) *Notifier {
	return &Notifier{
		ctx:    ctx,
		logger: logger.With().Str("component", "notify").Logger(),
		events: make(chan *Event, eventBuffer),
		sdk:    sdk,
	}
}

func (n *Notifier) Start() {
	n.wg.Add(1)
	go n.listen()
}

func (n *Notifier) Stop() {
	n.wg.Wait()
}

// Commit never blocks the caller; with the queue full the event is dropped.
func (n *Notifier) Commit(e *Event) {
	select {
	case n.events <- e:
	default:
		n.logger.Warn().Str("operation", e.Operation).Msg("notify queue full, event dropped")
	}
}

func (n *Notifier) listen() {
	defer n.wg.Done()
	for {
		select {
		case e := <-n.events:
			n.tryNotify(e)
		case <-n.ctx.Done():
			return
		}
	}
}

func (n *Notifier) tryNotify(e *Event) {
	if _, err := n.sdk.Notify(n.ctx, TextNotify(e.Text())); err != nil {
		n.logger.Warn().Err(err).Str("operation", e.Operation).Msg("notify")
	}
}
