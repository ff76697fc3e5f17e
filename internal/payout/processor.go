package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-marketplace/internal/events"
	"github.com/noah-isme/backend-marketplace/internal/lock"
	"github.com/noah-isme/backend-marketplace/internal/obs"
	"github.com/noah-isme/backend-marketplace/internal/settlement"
)

// Store is the persistence surface the processor needs.
type Store interface {
	GetSettlement(ctx context.Context, id uuid.UUID) (settlement.Settlement, error)
	UpdateSettlementStatus(ctx context.Context, id uuid.UUID, status settlement.Status, payoutRef string, paidAt *time.Time) error
}

// Gateway disburses funds to a seller and returns an external transfer
// reference. A permanent refusal wraps ErrTransferRejected; any other error
// is treated as transient.
type Gateway interface {
	Transfer(ctx context.Context, s settlement.Settlement) (string, error)
}

// Processor handles settlement payout tasks. A payout walks the settlement
// through processing to paid, or to failed when the transfer is rejected.
// When a Locker is configured, each settlement is processed under a redis
// lock so concurrent workers cannot double-transfer.
type Processor struct {
	Store   Store
	Gateway Gateway
	Events  *events.Bus
	Lock    *lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ProcessTask implements asynq.Handler for TypeSettlementPayout.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("payout: decode payload: %w", asynq.SkipRetry)
	}

	tracer := otel.Tracer("payout")
	ctx, span := tracer.Start(ctx, "Processor.ProcessTask")
	span.SetAttributes(attribute.String("settlement.id", payload.SettlementID.String()))
	defer span.End()

	if p.Lock != nil && p.Lock.R != nil {
		return p.Lock.WithLock(ctx, "payout:"+payload.SettlementID.String(), p.lockTTL(), func(ctx context.Context) error {
			return p.process(ctx, payload.SettlementID)
		})
	}
	return p.process(ctx, payload.SettlementID)
}

func (p *Processor) lockTTL() time.Duration {
	if p.LockTTL > 0 {
		return p.LockTTL
	}
	return time.Minute
}

func (p *Processor) process(ctx context.Context, settlementID uuid.UUID) error {
	s, err := p.Store.GetSettlement(ctx, settlementID)
	if err != nil {
		return fmt.Errorf("payout: load settlement %s: %w", settlementID, err)
	}

	if s.IsPaid() {
		p.count("already_paid")
		return nil
	}
	if s.Status != settlement.StatusProcessing {
		if !s.Status.CanTransitionTo(settlement.StatusProcessing) {
			p.count("skipped")
			p.Logger.Warn().
				Str("settlement_id", s.ID.String()).
				Str("status", string(s.Status)).
				Msg("payout skipped: settlement not payable")
			return nil
		}
		if err := p.Store.UpdateSettlementStatus(ctx, s.ID, settlement.StatusProcessing, "", nil); err != nil {
			return fmt.Errorf("payout: mark processing: %w", err)
		}
		s.Status = settlement.StatusProcessing
	}

	ref, err := p.Gateway.Transfer(ctx, s)
	if err != nil {
		// Only a provider rejection is terminal. Transport failures, 5xx
		// and an open breaker leave the settlement processing so the task
		// is retried.
		if errors.Is(err, ErrTransferRejected) {
			p.fail(ctx, s, err)
			return fmt.Errorf("payout: transfer rejected: %v: %w", err, asynq.SkipRetry)
		}
		p.count("retried")
		p.Logger.Warn().Err(err).
			Str("settlement_id", s.ID.String()).
			Msg("payout transfer failed, will retry")
		return fmt.Errorf("payout: transfer: %w", err)
	}

	paidAt := p.now()
	if err := p.Store.UpdateSettlementStatus(ctx, s.ID, settlement.StatusPaid, ref, &paidAt); err != nil {
		return fmt.Errorf("payout: mark paid: %w", err)
	}
	p.count("paid")
	p.emit(ctx, events.TopicSettlementPaid, s.ID, map[string]any{
		"seller_id":  s.SellerID,
		"payout_ref": ref,
		"amount":     s.SellerEarnings.String(),
	})
	p.Logger.Info().
		Str("settlement_id", s.ID.String()).
		Str("seller_id", s.SellerID.String()).
		Str("payout_ref", ref).
		Msg("settlement paid out")
	return nil
}

func (p *Processor) fail(ctx context.Context, s settlement.Settlement, cause error) {
	if err := p.Store.UpdateSettlementStatus(ctx, s.ID, settlement.StatusFailed, "", nil); err != nil {
		p.Logger.Error().Err(err).
			Str("settlement_id", s.ID.String()).
			Msg("failed to mark settlement failed")
	}
	p.count("failed")
	p.emit(ctx, events.TopicSettlementFailed, s.ID, map[string]any{
		"seller_id": s.SellerID,
		"reason":    cause.Error(),
	})
	p.Logger.Error().Err(cause).
		Str("settlement_id", s.ID.String()).
		Msg("payout transfer rejected")
}

func (p *Processor) emit(ctx context.Context, topic string, id uuid.UUID, payload map[string]any) {
	if p.Events == nil {
		return
	}
	if _, err := p.Events.Emit(ctx, topic, id, payload); err != nil {
		p.Logger.Error().Err(err).Str("topic", topic).Msg("emit payout event failed")
	}
}

func (p *Processor) count(result string) {
	if obs.PayoutProcessTotal != nil {
		obs.PayoutProcessTotal.WithLabelValues(result).Inc()
	}
}
