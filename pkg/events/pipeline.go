package events

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/launchdarkly/ccache"
	"github.com/robfig/cron"
	"golang.org/x/sync/semaphore"

	"github.com/flagcore/flagcore-go/pkg/ldevents"
	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/metrics"
)

const maxFlushWorkers = 5

// Config carries every pipeline knob that would otherwise come from the
// client's configuration; kept local to this package (rather than
// importing the config package) to leave the dependency direction
// pointing from client/config down into events, not the reverse.
type Config struct {
	SDKKey                string
	UserAgent             string
	EventsURI             string
	Capacity              int
	FlushInterval         time.Duration
	UserKeysFlushInterval time.Duration
	UserKeysCapacity      int
	InlineUsersInEvents   bool
	AllAttributesPrivate  bool
	PrivateAttributeNames []string
	SendEvents            bool
	Metrics               *metrics.Registry
}

// Pipeline is the single-consumer analytics event processor: Dispatch
// enqueues from any number of producer goroutines without blocking; one
// consumer goroutine owns the summarizer, the outbound buffer, and the
// user-key dedup cache, so none of the three need their own locks.
type Pipeline struct {
	cfg Config
	log ldlog.Loggers

	queue      *queue
	summarizer *summarizer
	userCache  *ccache.Cache
	outbound   []ldevents.InputEvent

	inlineUsers bool

	control chan message
	cron    *cron.Cron
	sem     *semaphore.Weighted
	client  *retryablehttp.Client

	disabled             atomic.Bool
	lastKnownServerTimeMs atomic.Int64

	wg   sync.WaitGroup
	done chan struct{}
}

// NewPipeline constructs and starts a Pipeline. If cfg.SendEvents is
// false, the returned pipeline still accepts Dispatch/Flush calls but
// silently discards everything, so callers don't need an offline-mode
// branch at every call site (see Null in this package).
func NewPipeline(cfg Config, log ldlog.Loggers) *Pipeline {
	if log == nil {
		log = ldlog.NewDefaultLoggers()
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.UserKeysFlushInterval <= 0 {
		cfg.UserKeysFlushInterval = 5 * time.Minute
	}
	if cfg.UserKeysCapacity <= 0 {
		cfg.UserKeysCapacity = 1000
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil

	p := &Pipeline{
		cfg:         cfg,
		log:         log,
		queue:       newQueue(cfg.Capacity, log),
		summarizer:  newSummarizer(),
		userCache:   ccache.New(ccache.Configure().MaxSize(int64(cfg.UserKeysCapacity))),
		inlineUsers: cfg.InlineUsersInEvents,
		control:     make(chan message),
		sem:         semaphore.NewWeighted(int64(maxFlushWorkers)),
		client:      rc,
		done:        make(chan struct{}),
	}

	if cfg.Metrics != nil {
		p.queue.SetMetrics(cfg.Metrics)
	}

	if cfg.SendEvents {
		p.cron = cron.New()
		_ = p.cron.AddFunc(fmt.Sprintf("@every %s", cfg.FlushInterval), func() { p.Flush() })
		_ = p.cron.AddFunc(fmt.Sprintf("@every %s", cfg.UserKeysFlushInterval), func() { p.FlushUsers() })
		p.cron.Start()
	}

	go p.run()
	return p
}

// Dispatch is the non-blocking producer entry point; it never touches the
// summarizer, outbound buffer, or user cache directly — only the consumer
// goroutine does, after draining the queue.
func (p *Pipeline) Dispatch(e ldevents.InputEvent) {
	if !p.cfg.SendEvents || p.disabled.Load() {
		return
	}
	p.queue.Push(e)
}

// Flush triggers an immediate flush and blocks until the consumer has
// processed it: queued events are folded in and the batch is handed to a
// flush worker. The worker posts the batch in the background; Flush does
// not wait for that post to finish.
func (p *Pipeline) Flush() {
	p.sendControl(func(done chan struct{}) message { return flushMessage{done: done} })
}

// FlushUsers clears the user-key dedup cache, as if user_keys_flush_interval
// had just elapsed.
func (p *Pipeline) FlushUsers() {
	p.sendControl(func(done chan struct{}) message { return flushUsersMessage{done: done} })
}

// TestSync blocks until the consumer has drained and dispatched every event
// enqueued before this call returns, without triggering a flush. Exists so
// tests can assert on summarizer/outbound state deterministically.
func (p *Pipeline) TestSync() {
	p.sendControl(func(done chan struct{}) message { return testSyncMessage{done: done} })
}

// Close flushes one last time and stops the consumer goroutine.
func (p *Pipeline) Close() {
	if p.cron != nil {
		p.cron.Stop()
	}
	p.sendControl(func(done chan struct{}) message { return stopMessage{done: done} })
	<-p.done
	p.wg.Wait()
}

func (p *Pipeline) sendControl(build func(chan struct{}) message) {
	done := make(chan struct{})
	select {
	case p.control <- build(done):
		<-done
	case <-p.done:
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	for msg := range p.control {
		switch m := msg.(type) {
		case flushMessage:
			p.drainQueue()
			p.doFlush()
			close(m.done)
		case flushUsersMessage:
			p.userCache.Clear()
			close(m.done)
		case testSyncMessage:
			p.drainQueue()
			close(m.done)
		case stopMessage:
			p.drainQueue()
			p.doFlush()
			close(m.done)
			return
		}
	}
}

// drainQueue pulls every currently-queued event off the queue and applies
// the dispatch algorithm to each, single-threaded.
func (p *Pipeline) drainQueue() {
	for _, e := range p.queue.DrainAll() {
		p.dispatchOne(e)
	}
}

func (p *Pipeline) dispatchOne(e ldevents.InputEvent) {
	var user *ldmodel.User
	isIdentify := false

	switch ev := e.(type) {
	case ldevents.FeatureEvent:
		user = ev.User
		p.summarizer.AddFeatureEvent(ev)
		if p.shouldKeepFeatureEvent(ev) {
			p.outbound = append(p.outbound, ev)
		}
	case ldevents.IdentifyEvent:
		user = ev.User
		isIdentify = true
		p.outbound = append(p.outbound, ev)
	case ldevents.CustomEvent:
		user = ev.User
		p.outbound = append(p.outbound, ev)
	case ldevents.IndexEvent:
		p.outbound = append(p.outbound, ev)
		return
	}

	if !p.inlineUsers && user != nil {
		alreadySeen := p.noticeUser(user.Key)
		if !alreadySeen && !isIdentify {
			p.outbound = append(p.outbound, ldevents.IndexEvent{CreationDateMs: e.CreationDate(), User: user})
		}
	}
}

func (p *Pipeline) shouldKeepFeatureEvent(e ldevents.FeatureEvent) bool {
	if e.TrackEvents {
		return true
	}
	if e.DebugEventsUntilDate == nil {
		return false
	}
	now := nowMs()
	bound := now
	if last := p.lastKnownServerTimeMs.Load(); last > bound {
		bound = last
	}
	return *e.DebugEventsUntilDate > bound
}

// noticeUser returns true iff key was already present in the dedup set,
// adding it otherwise. Backed by an LRU cache bounded to user_keys_capacity
// entries, individually expiring after user_keys_flush_interval so a
// periodic FlushUsers clear isn't the only way stale keys leave the set.
func (p *Pipeline) noticeUser(key string) bool {
	item := p.userCache.Get(key)
	if item != nil && !item.Expired() {
		return true
	}
	p.userCache.Set(key, true, p.cfg.UserKeysFlushInterval)
	return false
}

func (p *Pipeline) doFlush() {
	if len(p.outbound) == 0 && p.summarizer.Empty() {
		return
	}
	outbound := p.outbound
	p.outbound = nil
	summary := p.summarizer.SnapshotAndReset()

	ctx := context.Background()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.log.Errorf("flush worker pool acquire failed: %v", err)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		p.postBatch(outbound, summary)
	}()
}

func (p *Pipeline) postBatch(outbound []ldevents.InputEvent, summary *summarizer) {
	if p.cfg.Metrics != nil {
		start := time.Now()
		defer p.cfg.Metrics.ObserveFlush(start)
	}

	body, err := p.encodeBatch(outbound, summary)
	if err != nil {
		p.log.Errorf("failed to encode event batch: %v", err)
		return
	}

	payloadID := uuid.New().String()

	req, err := retryablehttp.NewRequest(http.MethodPost, p.cfg.EventsURI+"/bulk", bytes.NewReader(body))
	if err != nil {
		p.log.Errorf("failed to build event post request: %v", err)
		return
	}
	req.Header.Set("Authorization", p.cfg.SDKKey)
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-LaunchDarkly-Payload-ID", payloadID)

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warnf("event post %s failed: %v", payloadID, err)
		return
	}
	defer resp.Body.Close()

	if date := resp.Header.Get("Date"); date != "" {
		if t, err := http.ParseTime(date); err == nil {
			p.lastKnownServerTimeMs.Store(t.UnixMilli())
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return
	}
	if uerr := (&ldmodel.ErrUnexpectedResponse{Status: resp.StatusCode, URL: p.cfg.EventsURI}); ldmodel.IsUnrecoverableHTTPStatus(resp.StatusCode) {
		p.log.Errorf("unrecoverable event post status %d, disabling event pipeline: %v", resp.StatusCode, uerr)
		p.disabled.Store(true)
		return
	}
	p.log.Warnf("unexpected event post status %d", resp.StatusCode)
}

var nowMs = func() int64 { return time.Now().UnixMilli() }
