// cmd/historian/historian.go
package main

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/pokerbets/internal/cache"
	"github.com/jason-s-yu/pokerbets/internal/config"
	"github.com/jason-s-yu/pokerbets/internal/database"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// eventSource yields the next queued event, or nil after an idle wait.
type eventSource interface {
	Next(ctx context.Context) (*ledger.Event, error)
}

// eventSink persists one batch atomically.
type eventSink interface {
	Write(ctx context.Context, batch []ledger.Event) error
}

type redisSource struct {
	client *redis.Client
	queue  string
}

func (r *redisSource) Next(ctx context.Context) (*ledger.Event, error) {
	// Short BLPop timeout so shutdown and ticker flushes are not held up.
	return cache.PopEvent(ctx, r.client, r.queue, 3*time.Second)
}

type pgSink struct {
	pool *pgxpool.Pool
}

func (p pgSink) Write(ctx context.Context, batch []ledger.Event) error {
	return database.InsertEvents(ctx, p.pool, batch)
}

// Historian batches events from the queue and flushes them to the sink
// when the batch fills up or the flush interval passes.
type Historian struct {
	source     eventSource
	sink       eventSink
	queue      string
	batchSize  int
	flushDelay time.Duration
	log        *logrus.Logger

	batchMu sync.Mutex
	batch   []ledger.Event
}

func NewHistorian(cfg config.Historian, queue string, source eventSource, sink eventSink, log *logrus.Logger) *Historian {
	return &Historian{
		source:     source,
		sink:       sink,
		queue:      queue,
		batchSize:  cfg.BatchSize,
		flushDelay: time.Duration(cfg.FlushMs) * time.Millisecond,
		log:        log,
		batch:      make([]ledger.Event, 0, cfg.BatchSize),
	}
}

// Run reads until ctx is cancelled, then flushes whatever is left.
func (h *Historian) Run(ctx context.Context) {
	events := make(chan ledger.Event)
	go h.readLoop(ctx, events)

	ticker := time.NewTicker(h.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flush(context.Background())
			return
		case <-ticker.C:
			h.flush(ctx)
		case ev := <-events:
			if h.append(ev) {
				h.flush(ctx)
			}
		}
	}
}

func (h *Historian) readLoop(ctx context.Context, out chan<- ledger.Event) {
	for ctx.Err() == nil {
		ev, err := h.source.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				h.log.WithError(err).WithField("queue", h.queue).Error("reading event queue")
				time.Sleep(time.Second)
			}
			continue
		}
		if ev == nil {
			continue
		}
		select {
		case out <- *ev:
		case <-ctx.Done():
			return
		}
	}
}

// append adds ev to the batch and reports whether the batch is full.
func (h *Historian) append(ev ledger.Event) bool {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	h.batch = append(h.batch, ev)
	return len(h.batch) >= h.batchSize
}

// flush writes the current batch in one transaction. A failed batch is kept
// and retried on the next flush.
func (h *Historian) flush(ctx context.Context) {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()

	if len(h.batch) == 0 {
		return
	}
	if err := h.sink.Write(ctx, h.batch); err != nil {
		h.log.WithError(err).WithField("pending", len(h.batch)).Error("flush failed")
		return
	}
	h.log.Debugf("flushed %d events", len(h.batch))
	h.batch = h.batch[:0]
}
