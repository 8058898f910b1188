// internal/apikey/usage.go
//
// Asynchronous usage recorder.
//
// Context
// -------
// The gateway reports one event per gated request after the operation
// completes.  Events are aggregated in memory and flushed to the api_keys
// row on an interval, so the request path never waits on a counter UPDATE.
// The flushed counters are the audit/display source of truth; rate-limit
// enforcement stays on the window store (internal/ratelimit), and the two
// are reconciled by the flush, not per request.
package apikey

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/metrics"
)

// DefaultFlushInterval is how often pending counts are written out.
const DefaultFlushInterval = 30 * time.Second

type usageDelta struct {
	total   int64
	success int64
	failed  int64
}

// Recorder batches per-key usage counters.
type Recorder struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
	now func() time.Time

	mu      sync.Mutex
	pending map[uint64]*usageDelta

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewRecorder starts the background flush loop.
func NewRecorder(db *sqlx.DB, interval time.Duration, log *zap.SugaredLogger) *Recorder {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	r := &Recorder{
		db:      db,
		log:     log,
		now:     time.Now,
		pending: make(map[uint64]*usageDelta),
		ticker:  time.NewTicker(interval),
		done:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Record notes one completed request for a key.  Cheap; never blocks on the
// database.
func (r *Recorder) Record(keyID uint64, success bool) {
	r.mu.Lock()
	d := r.pending[keyID]
	if d == nil {
		d = &usageDelta{}
		r.pending[keyID] = d
	}
	d.total++
	if success {
		d.success++
	} else {
		d.failed++
	}
	r.mu.Unlock()
}

// Close stops the loop and flushes whatever is pending.
func (r *Recorder) Close() {
	r.ticker.Stop()
	close(r.done)
	r.wg.Wait()
	r.Flush(context.Background())
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case <-r.ticker.C:
			r.Flush(context.Background())
		}
	}
}

// Flush writes all pending deltas.  Day and month buckets roll over in SQL:
// when the stored bucket label differs from the current one the counter
// restarts at this batch's delta.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = make(map[uint64]*usageDelta)
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	now := r.now().UTC()
	day := now.Format("2006-01-02")
	month := now.Format("2006-01")

	const q = `
        UPDATE api_keys SET
            total_requests   = total_requests + ?,
            success_requests = success_requests + ?,
            failed_requests  = failed_requests + ?,
            day_requests     = CASE WHEN day_date = ? THEN day_requests + ? ELSE ? END,
            day_date         = ?,
            month_requests   = CASE WHEN month_date = ? THEN month_requests + ? ELSE ? END,
            month_date       = ?,
            last_used_at     = CURRENT_TIMESTAMP,
            updated_at       = CURRENT_TIMESTAMP
        WHERE id = ?`

	for keyID, d := range batch {
		_, err := r.db.ExecContext(ctx, q,
			d.total, d.success, d.failed,
			day, d.total, d.total, day,
			month, d.total, d.total, month,
			keyID)
		if err != nil {
			metrics.UsageFlushErrorsTotal.Inc()
			r.log.Warnw("usage flush failed", "key", keyID, "err", err)
			// Re-queue so the counts are not lost; next flush retries.
			r.mu.Lock()
			if cur := r.pending[keyID]; cur != nil {
				cur.total += d.total
				cur.success += d.success
				cur.failed += d.failed
			} else {
				r.pending[keyID] = d
			}
			r.mu.Unlock()
			continue
		}
		metrics.UsageFlushTotal.Inc()
	}
}
