package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LeventeLantos/notification-outbox/internal/model"
	"github.com/LeventeLantos/notification-outbox/internal/provider"
	"github.com/LeventeLantos/notification-outbox/internal/store"
)

// ReceiptCache records delivery receipts for successfully sent messages.
// Cache writes are best-effort: a cache failure never affects dispatch
// state.
type ReceiptCache interface {
	StoreReceipt(ctx context.Context, id int64, providerName, providerResponse string, sentAt time.Time) error
}

type Options struct {
	// MaxRetries is the total attempt budget before a message is dead-lettered.
	MaxRetries int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
	// BatchSize bounds the work claimed per dispatch pass.
	BatchSize int
	// SendTimeout bounds each provider call; a timeout is an ordinary
	// failure routed through the retry path.
	SendTimeout time.Duration
	// Workers bounds in-pass concurrency. 1 means sequential.
	Workers int
	// ClaimLease is how long claimed rows stay invisible to other passes
	// before a crashed pass's work becomes claimable again. Raised
	// automatically to the pass's worst-case duration when set below it.
	ClaimLease time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:  5,
		BaseDelay:   5 * time.Minute,
		BatchSize:   50,
		SendTimeout: 10 * time.Second,
		Workers:     1,
		ClaimLease:  2 * time.Minute,
	}
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.MaxRetries <= 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = def.BaseDelay
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = def.SendTimeout
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.ClaimLease <= 0 {
		o.ClaimLease = def.ClaimLease
	}

	// A pass may hold its claims for up to one send timeout per message
	// per worker before it gets around to marking them. A lease shorter
	// than that lets a concurrent pass reclaim rows that are still in
	// flight, so the configured lease is only honored above the floor.
	perWorker := (o.BatchSize + o.Workers - 1) / o.Workers
	if floor := o.SendTimeout*time.Duration(perWorker) + o.SendTimeout; o.ClaimLease < floor {
		o.ClaimLease = floor
	}
}

// Engine drives the outbox: it claims due messages, invokes the active
// delivery provider, and converts every outcome into a state transition on
// the store. Stateless between passes, so periodic and on-demand triggers
// may overlap; the store's atomic claim keeps them from double-processing.
type Engine struct {
	store    store.OutboxStore
	resolve  provider.Resolver
	receipts ReceiptCache
	logger   *slog.Logger
	opts     Options

	now func() time.Time
}

func New(st store.OutboxStore, resolve provider.Resolver, receipts ReceiptCache, logger *slog.Logger, opts Options) *Engine {
	opts.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    st,
		resolve:  resolve,
		receipts: receipts,
		logger:   logger,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the engine's clock. Test hook.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// RunDispatchPass claims one batch of due messages and attempts each of
// them exactly once. Bounded work: the pass returns after the batch
// instead of draining the queue, so it is safe to trigger from a ticker
// and on demand at the same time.
func (e *Engine) RunDispatchPass(ctx context.Context) error {
	p := e.resolve()

	msgs, err := e.store.ClaimDueBatch(ctx, e.opts.BatchSize, e.opts.MaxRetries, e.opts.ClaimLease)
	if err != nil {
		return fmt.Errorf("claiming due batch: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	e.logger.Info("dispatch pass claimed batch",
		"count", len(msgs),
		"provider", p.Name(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, m := range msgs {
		g.Go(func() error {
			e.attempt(gctx, p, m)
			return nil
		})
	}
	_ = g.Wait()

	return nil
}

// attempt performs one delivery attempt and records the outcome. Delivery
// failures are contained here as state transitions, never propagated.
func (e *Engine) attempt(ctx context.Context, p provider.Provider, m model.Message) {
	msgLogger := e.logger.With(
		slog.Int64("messageId", m.ID),
		slog.String("provider", p.Name()),
	)

	sendCtx, cancel := context.WithTimeout(ctx, e.opts.SendTimeout)
	defer cancel()

	res, sendErr := p.Send(sendCtx, m.Destination, m.Payload)
	if sendErr == nil {
		if err := e.store.MarkSent(ctx, m.ID, res.ProviderName, res.ProviderResponse); err != nil {
			msgLogger.Error("failed to mark message sent", "error", err.Error())
			return
		}
		msgLogger.Info("message sent", "retryCount", m.RetryCount)

		if e.receipts != nil {
			if err := e.receipts.StoreReceipt(ctx, m.ID, res.ProviderName, res.ProviderResponse, e.now()); err != nil {
				msgLogger.Error("failed to store delivery receipt", "error", err.Error())
			}
		}
		return
	}

	newCount := m.RetryCount + 1
	if newCount >= e.opts.MaxRetries {
		if err := e.store.MarkFailed(ctx, m.ID, newCount, sendErr.Error(), res.ProviderName, res.ProviderResponse); err != nil {
			msgLogger.Error("failed to mark message failed", "error", err.Error())
			return
		}
		msgLogger.Error("message dead-lettered",
			"retryCount", newCount,
			"error", sendErr.Error(),
		)
		return
	}

	nextRetryAt := e.now().Add(Backoff(e.opts.BaseDelay, newCount))
	if err := e.store.MarkRetry(ctx, m.ID, newCount, sendErr.Error(), nextRetryAt, res.ProviderName, res.ProviderResponse); err != nil {
		msgLogger.Error("failed to mark message for retry", "error", err.Error())
		return
	}
	msgLogger.Warn("message attempt failed, retry scheduled",
		"retryCount", newCount,
		"nextRetryAt", nextRetryAt,
		"error", sendErr.Error(),
	)
}

// ForceRetry revives a message and immediately runs a dispatch pass so the
// operator gets near-real-time feedback instead of waiting for the next
// scheduled tick. Returns store.ErrNotFound for an unknown id.
func (e *Engine) ForceRetry(ctx context.Context, id int64) error {
	if err := e.store.ResetForRetry(ctx, id); err != nil {
		return err
	}
	e.logger.Info("message reset for retry", "messageId", id)
	return e.RunDispatchPass(ctx)
}

// PurgeFailed deletes every dead-lettered message. Irreversible; callers
// own any confirmation step.
func (e *Engine) PurgeFailed(ctx context.Context) (int64, error) {
	purged, err := e.store.PurgeFailed(ctx)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		e.logger.Info("purged failed messages", "count", purged)
	}
	return purged, nil
}
