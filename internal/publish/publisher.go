package publish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/leighmacdonald/slottrack/internal/config"
	"github.com/leighmacdonald/slottrack/internal/tracker"
)

const (
	maxAttempts    = 4
	attemptTimeout = 30 * time.Second

	// Event bursts can request a sync on every kill. The limiter folds those
	// into at most a couple of deliveries per second.
	syncRateLimit = rate.Limit(2)
	syncRateBurst = 4
)

var (
	metricSyncAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slottrack",
		Subsystem: "publish",
		Name:      "attempts_total",
		Help:      "Delivery attempts made against the collector.",
	})
	metricSyncSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slottrack",
		Subsystem: "publish",
		Name:      "success_total",
		Help:      "Snapshots accepted by the collector.",
	})
	metricSyncFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slottrack",
		Subsystem: "publish",
		Name:      "failed_total",
		Help:      "Deliveries abandoned after exhausting retries or being rejected.",
	})
	metricSyncDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slottrack",
		Subsystem: "publish",
		Name:      "dropped_total",
		Help:      "Sync requests coalesced or rate limited before delivery.",
	})
)

func NewPublisher(conf config.Config, reporter Reporter) *Publisher {
	return &Publisher{
		conf:     conf,
		reporter: reporter,
		limiter:  rate.NewLimiter(syncRateLimit, syncRateBurst),
		requests: make(chan func() tracker.Snapshot, 1),
		sleep:    func(ctx context.Context, wait time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		},
	}
}

// Publisher is the delivery engine between the tracker and the collector. It
// implements tracker.Syncer: Request never blocks and never calls the build
// function inline, the snapshot is built fresh for every delivery attempt so
// that retried deliveries always carry the latest state.
type Publisher struct {
	conf     config.Config
	reporter Reporter
	limiter  *rate.Limiter
	requests chan func() tracker.Snapshot
	sleep    func(ctx context.Context, wait time.Duration)
}

// Request queues a delivery. Forced requests, used for the periodic heartbeat
// and state transitions, bypass the rate limiter. When a delivery is already
// queued the new request is coalesced into it since the pending build will
// pick up the newer state anyway.
func (p *Publisher) Request(build func() tracker.Snapshot, force bool) {
	if !p.conf.SyncConfigured() {
		return
	}

	if !force && !p.limiter.Allow() {
		metricSyncDropped.Inc()

		return
	}

	select {
	case p.requests <- build:
	default:
		metricSyncDropped.Inc()
	}
}

// Start consumes queued deliveries until the context is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case build := <-p.requests:
			p.deliver(ctx, build)
		}
	}
}

// deliver runs one delivery with bounded retries. Each attempt rebuilds the
// snapshot so a retry after a wait does not report stale state.
func (p *Publisher) deliver(ctx context.Context, build func() tracker.Snapshot) {
	for attempt := range maxAttempts {
		if ctx.Err() != nil {
			return
		}

		snapshot := build()

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		errReport := p.reporter.Report(attemptCtx, snapshot)
		cancel()

		metricSyncAttempts.Inc()

		if errReport == nil {
			metricSyncSuccess.Inc()

			return
		}

		if errors.Is(errReport, ErrRejected) {
			metricSyncFailed.Inc()
			slog.Error("Collector rejected snapshot, not retrying",
				slog.String("error", errReport.Error()))

			return
		}

		slog.Warn("Snapshot delivery failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", errReport.Error()))

		if attempt < maxAttempts-1 {
			p.sleep(ctx, time.Duration(attempt+1)*time.Second)
		}
	}

	metricSyncFailed.Inc()
	slog.Error("Snapshot delivery abandoned after retries",
		slog.Int("attempts", maxAttempts))
}
