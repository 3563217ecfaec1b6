package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	es "github.com/launchdarkly/eventsource"

	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/metrics"
	"github.com/flagcore/flagcore-go/pkg/store"
)

// Stream opens an SSE connection to /all and applies put/patch/delete
// events to the store as they arrive. The eventsource library owns
// reconnection (and Last-Event-ID resumption) for an already-established
// stream; cenkalti/backoff's exponential-backoff-with-jitter policy governs
// retrying the *initial* subscribe call, which is the one failure mode
// eventsource itself can't retry past (a connection that never opens).
type Stream struct {
	sdkKey    string
	userAgent string
	streamURL string
	log       ldlog.Loggers
	store     store.Store

	stream      *es.Stream
	ready       *ReadySignal
	initialized atomic.Bool
	stopped     atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}

	Metrics *metrics.Registry
}

func NewStream(sdkKey, userAgent, streamURL string, s store.Store, log ldlog.Loggers) *Stream {
	if log == nil {
		log = ldlog.NewDefaultLoggers()
	}
	return &Stream{sdkKey: sdkKey, userAgent: userAgent, streamURL: streamURL, store: s, log: log}
}

func (st *Stream) Start(ctx context.Context) *ReadySignal {
	st.ready = NewReadySignal()
	ctx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	st.done = make(chan struct{})

	go st.run(ctx)
	return st.ready
}

func (st *Stream) run(ctx context.Context) {
	defer close(st.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	bctx := backoff.WithContext(b, ctx)

	var stream *es.Stream
	err := backoff.Retry(func() error {
		s, subErr := st.subscribe(ctx)
		if subErr != nil {
			if uerr, ok := subErr.(*ldmodel.ErrUnexpectedResponse); ok && ldmodel.IsUnrecoverableHTTPStatus(uerr.Status) {
				st.log.Errorf("unrecoverable stream status %d, stopping data source", uerr.Status)
				st.stopped.Store(true)
				st.ready.Signal()
				return nil // stop retrying; run() exits below since stream stays nil
			}
			st.log.Warnf("stream connect failed, retrying: %v", subErr)
			return subErr
		}
		stream = s
		return nil
	}, bctx)
	if err != nil || stream == nil {
		return
	}
	st.stream = stream
	defer stream.Close()

	for {
		select {
		case ev, ok := <-stream.Events:
			if !ok {
				return
			}
			st.handleEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (st *Stream) subscribe(ctx context.Context) (*es.Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.streamURL+"/all", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", st.sdkKey)
	req.Header.Set("User-Agent", st.userAgent)

	stream, err := es.SubscribeWithRequest("", req)
	if err != nil {
		if he, ok := err.(es.SubscriptionError); ok {
			if ldmodel.IsUnrecoverableHTTPStatus(he.Code) {
				return nil, &ldmodel.ErrUnexpectedResponse{Status: he.Code, URL: st.streamURL}
			}
		}
		return nil, err
	}
	return stream, nil
}

func (st *Stream) handleEvent(ev es.Event) {
	switch ev.Event() {
	case "put":
		var payload struct {
			Path string   `json:"path"`
			Data snapshot `json:"data"`
		}
		if err := json.Unmarshal([]byte(ev.Data()), &payload); err != nil {
			st.log.Errorf("failed to parse put event: %v", err)
			return
		}
		if err := st.store.Init(snapshotToStoreData(payload.Data)); err != nil {
			st.log.Errorf("failed to apply put event: %v", err)
			return
		}
		st.initialized.Store(true)
		st.ready.Signal()
		if st.Metrics != nil {
			st.Metrics.DataSourceStale.Set(0)
		}

	case "patch":
		var payload struct {
			Path string          `json:"path"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(ev.Data()), &payload); err != nil {
			st.log.Errorf("failed to parse patch event: %v", err)
			return
		}
		kind, key, ok := patchPath(payload.Path)
		if !ok {
			return
		}
		item, err := decodeItem(kind, key, payload.Data)
		if err != nil {
			st.log.Errorf("failed to decode patch item: %v", err)
			return
		}
		if _, err := st.store.Upsert(kind, item); err != nil {
			st.log.Errorf("failed to apply patch event: %v", err)
		}

	case "delete":
		var payload struct {
			Path    string `json:"path"`
			Version int    `json:"version"`
		}
		if err := json.Unmarshal([]byte(ev.Data()), &payload); err != nil {
			st.log.Errorf("failed to parse delete event: %v", err)
			return
		}
		kind, key, ok := patchPath(payload.Path)
		if !ok {
			return
		}
		if _, err := st.store.Delete(kind, key, payload.Version); err != nil {
			st.log.Errorf("failed to apply delete event: %v", err)
		}

	default:
		st.log.Debugf("ignoring unrecognized stream event kind %q", ev.Event())
	}
}

func decodeItem(kind ldmodel.Kind, key string, data json.RawMessage) (ldmodel.Item, error) {
	switch kind {
	case ldmodel.FlagKind:
		var f ldmodel.Flag
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		f.Key = key
		return f, nil
	default:
		var s ldmodel.Segment
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		s.Key = key
		return s, nil
	}
}

func (st *Stream) Stop() {
	if st.cancel != nil {
		st.cancel()
	}
	if st.done != nil {
		<-st.done
	}
}

func (st *Stream) Initialized() bool { return st.initialized.Load() }
