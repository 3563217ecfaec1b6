package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/metrics"
	"github.com/flagcore/flagcore-go/pkg/requestor"
	"github.com/flagcore/flagcore-go/pkg/store"
)

const minPollInterval = 30 * time.Second

// Poll fetches /sdk/latest-all on a schedule and replaces the store
// atomically on each successful fetch. Ticks are scheduled with
// robfig/cron's "@every <duration>" spec so the poll_interval floor-clamp
// (§9 open question (b): enforced as max(configured, 30s), clamped
// silently but logged) turns directly into the cron spec string rather
// than a hand-rolled ticker.
type Poll struct {
	requestor *requestor.Requestor
	store     store.Store
	baseURL   string
	interval  time.Duration
	log       ldlog.Loggers

	cron        *cron.Cron
	ready       *ReadySignal
	initialized atomic.Bool
	stopped     atomic.Bool

	mu   sync.Mutex
	stop context.CancelFunc

	Metrics *metrics.Registry
}

func NewPoll(req *requestor.Requestor, s store.Store, baseURL string, interval time.Duration, log ldlog.Loggers) *Poll {
	if log == nil {
		log = ldlog.NewDefaultLoggers()
	}
	if interval < minPollInterval {
		log.Warnf("poll_interval %s is below the %s floor; clamping", interval, minPollInterval)
		interval = minPollInterval
	}
	return &Poll{requestor: req, store: s, baseURL: baseURL, interval: interval, log: log}
}

func (p *Poll) Start(ctx context.Context) *ReadySignal {
	p.ready = NewReadySignal()
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.stop = cancel
	p.mu.Unlock()

	p.cron = cron.New()
	_ = p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.tick(ctx)
	})
	p.cron.Start()

	// fetch once immediately rather than waiting for the first tick, so
	// Initialized() can become true promptly after Start.
	go p.tick(ctx)

	return p.ready
}

func (p *Poll) tick(ctx context.Context) {
	if p.stopped.Load() {
		return
	}
	body, err := p.requestor.Get(ctx, p.baseURL+"/sdk/latest-all")
	if err != nil {
		p.handleError(err)
		return
	}
	snap, err := parseSnapshot(body)
	if err != nil {
		p.log.Errorf("failed to parse poll response: %v", err)
		return
	}
	if err := p.store.Init(snapshotToStoreData(snap)); err != nil {
		p.log.Errorf("failed to apply polled snapshot: %v", err)
		return
	}
	p.initialized.Store(true)
	p.ready.Signal()
	if p.Metrics != nil {
		p.Metrics.DataSourceStale.Set(0)
	}
}

func (p *Poll) handleError(err error) {
	if uerr, ok := err.(*ldmodel.ErrUnexpectedResponse); ok && ldmodel.IsUnrecoverableHTTPStatus(uerr.Status) {
		p.log.Errorf("unrecoverable poll response status %d, stopping data source", uerr.Status)
		p.stopped.Store(true)
		p.ready.Signal()
		p.Stop()
		return
	}
	p.log.Warnf("poll request failed, will retry next tick: %v", err)
}

func (p *Poll) Stop() {
	p.mu.Lock()
	stop := p.stop
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
	if p.cron != nil {
		p.cron.Stop()
	}
}

func (p *Poll) Initialized() bool { return p.initialized.Load() }
