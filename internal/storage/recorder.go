// internal/storage/recorder.go
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/events"
	"github.com/laurent357/Sniping-bot/internal/storage/models"
)

// Recorder listens on the event bus and mirrors pipeline activity into
// storage. It is the only writer; the pipeline never blocks on the
// database.
type Recorder struct {
	store  Storage
	logger *zap.Logger
	subs   []events.Subscription
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Storage, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger.Named("recorder")}
}

// Attach subscribes the recorder to the bus. Call Detach to stop.
func (r *Recorder) Attach(bus *events.Bus) {
	r.subs = append(r.subs,
		bus.SubscribeFunc(events.OpportunityDetected, r.onOpportunity),
		bus.SubscribeFunc(events.TransactionSubmitted, r.onSubmitted),
		bus.SubscribeFunc(events.TransactionCompleted, r.onCompleted),
		bus.SubscribeFunc(events.TransactionFailed, r.onFailed),
	)
}

// Detach removes all bus subscriptions.
func (r *Recorder) Detach() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	r.subs = nil
}

func (r *Recorder) onOpportunity(ctx context.Context, e events.Event) error {
	event, ok := e.(events.OpportunityDetectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	return r.store.SavePool(ctx, &models.Pool{
		PoolID:       event.PoolID,
		Venue:        event.Venue,
		TokenA:       event.TokenAddress,
		PriceUSD:     event.Price,
		LiquidityUSD: event.Liquidity,
		LastSeen:     event.Timestamp(),
	})
}

func (r *Recorder) onSubmitted(ctx context.Context, e events.Event) error {
	event, ok := e.(events.TransactionSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	err := r.store.SaveTransaction(ctx, &models.Transaction{
		TransactionID: event.TransactionID,
		Signature:     event.Signature,
		TokenAddress:  event.TokenAddress,
		StrategyName:  event.StrategyName,
		AmountSOL:     event.AmountSOL,
		Status:        "pending",
	})
	if err != nil {
		r.logger.Error("failed to persist transaction",
			zap.String("signature", event.Signature),
			zap.Error(err))
	}
	return err
}

func (r *Recorder) onCompleted(ctx context.Context, e events.Event) error {
	event, ok := e.(events.TransactionCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	return r.store.UpdateTransactionStatus(ctx, event.Signature, "completed", "")
}

func (r *Recorder) onFailed(ctx context.Context, e events.Event) error {
	event, ok := e.(events.TransactionFailedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	if event.Signature == "" {
		// Rejections before submission have no ledger row to update.
		return nil
	}
	return r.store.UpdateTransactionStatus(ctx, event.Signature, "failed", event.Reason)
}
