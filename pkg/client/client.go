// Package client assembles the store, event pipeline, data source, and
// evaluator into the single facade application code holds for the
// lifetime of the process.
package client

import (
	"context"

	"github.com/flagcore/flagcore-go/pkg/datasource"
	"github.com/flagcore/flagcore-go/pkg/eval"
	"github.com/flagcore/flagcore-go/pkg/events"
	"github.com/flagcore/flagcore-go/pkg/ldconfig"
	"github.com/flagcore/flagcore-go/pkg/ldevents"
	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/metrics"
	"github.com/flagcore/flagcore-go/pkg/requestor"
	"github.com/flagcore/flagcore-go/pkg/store"
)

// Client is the embedded SDK instance: created once per process and shared
// across concurrent request handlers.
type Client struct {
	cfg     ldconfig.Config
	log     ldlog.Loggers
	store   store.Store
	sink    events.Sink
	source  datasource.DataSource
	metrics *metrics.Registry
}

// New builds a Client, starts its data source, and blocks up to
// wait_for_seconds on the readiness signal if one is configured — logging
// (never erroring) on timeout, per spec §4.6. metricsReg is optional and
// may be nil; when set it is wired into both the event pipeline and the
// data source.
func New(cfg ldconfig.Config, metricsReg *metrics.Registry) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := cfg.FeatureStore
	if s == nil {
		s = store.NewMemoryStore(cfg.Log)
	}

	c := &Client{cfg: cfg, log: cfg.Log, store: s, metrics: metricsReg}
	c.sink = c.buildSink()
	c.source = c.buildSource(s)

	ready := c.source.Start(context.Background())
	if cfg.WaitForSeconds > 0 {
		waitCtx, cancel := context.WithTimeout(context.Background(), cfg.WaitForSeconds)
		defer cancel()
		if !ready.Wait(waitCtx) {
			c.log.Warnf("timed out after %s waiting for the data source to become ready", cfg.WaitForSeconds)
		}
	}

	return c, nil
}

func (c *Client) buildSink() events.Sink {
	if c.cfg.Offline || !c.cfg.SendEvents {
		return events.NewNull()
	}
	return events.NewPipeline(events.Config{
		SDKKey:                c.cfg.SDKKey,
		UserAgent:             "FlagcoreGoClient/1.0",
		EventsURI:             c.cfg.EventsURI,
		Capacity:              c.cfg.Capacity,
		FlushInterval:         c.cfg.FlushInterval,
		UserKeysFlushInterval: c.cfg.UserKeysFlushInterval,
		UserKeysCapacity:      c.cfg.UserKeysCapacity,
		InlineUsersInEvents:   c.cfg.InlineUsersInEvents,
		AllAttributesPrivate:  c.cfg.AllAttributesPrivate,
		PrivateAttributeNames: c.cfg.PrivateAttributeNames,
		SendEvents:            true,
		Metrics:               c.metrics,
	}, c.log)
}

func (c *Client) buildSource(s store.Store) datasource.DataSource {
	if c.cfg.DataSource != nil {
		if src, ok := c.cfg.DataSource.(datasource.DataSource); ok {
			return src
		}
	}
	if c.cfg.Offline || c.cfg.UseLDD {
		return datasource.NewNull()
	}

	req := requestor.New(c.cfg.SDKKey, "FlagcoreGoClient/1.0", c.cfg.ConnectTimeout, c.cfg.ReadTimeout, c.log)
	if c.cfg.Stream {
		src := datasource.NewStream(c.cfg.SDKKey, "FlagcoreGoClient/1.0", c.cfg.StreamURI, s, c.log)
		src.Metrics = c.metrics
		return src
	}
	p := datasource.NewPoll(req, s, c.cfg.BaseURI, c.cfg.PollInterval, c.log)
	p.Metrics = c.metrics
	return p
}

// Initialized reports the data source's own Initialized state: for Poll,
// Stream and File, whether at least one sync has succeeded; for the Null
// source used offline and in LDD mode, always true.
func (c *Client) Initialized() bool { return c.source.Initialized() }

// Variation returns the assigned value for key/user, or fallback on any
// error. No exception ever reaches the caller (spec §7 policy).
func (c *Client) Variation(key string, user *ldmodel.User, fallback ldmodel.Value) ldmodel.Value {
	detail := c.evaluate(key, user, fallback, false)
	return detail.Value
}

// VariationDetail is Variation plus the full evaluation reason.
func (c *Client) VariationDetail(key string, user *ldmodel.User, fallback ldmodel.Value) ldmodel.EvaluationDetail {
	return c.evaluate(key, user, fallback, true)
}

func (c *Client) evaluate(key string, user *ldmodel.User, fallback ldmodel.Value, withReasons bool) ldmodel.EvaluationDetail {
	item, err := c.store.Get(ldmodel.FlagKind, key)
	if err != nil || item == nil {
		detail := ldmodel.EvaluationDetail{Value: fallback, Reason: ldmodel.ErrorReason(ldmodel.ErrorFlagNotFound)}
		c.emitFeatureEvent(key, user, detail, fallback, nil, false, nil, withReasons)
		return detail
	}
	flag, ok := item.(ldmodel.Flag)
	if !ok {
		detail := ldmodel.EvaluationDetail{Value: fallback, Reason: ldmodel.ErrorReason(ldmodel.ErrorFlagNotFound)}
		c.emitFeatureEvent(key, user, detail, fallback, nil, false, nil, withReasons)
		return detail
	}

	detail, prereqEvents := eval.Evaluate(flag, user, c.store)
	for _, e := range prereqEvents {
		c.sink.Dispatch(e)
	}

	if detail.VariationIndex == nil {
		detail.Value = fallback
	}

	trackReason := selectorTrackReason(flag, detail.Reason)

	var version *int
	if detail.Reason.Kind != ldmodel.ReasonError || detail.Reason.ErrorKind != ldmodel.ErrorUserNotSpecified {
		v := flag.Version
		version = &v
	}
	c.emitFeatureEvent(key, user, detail, fallback, version, flag.TrackEvents, flag.DebugEventsUntilDate, withReasons || trackReason)

	if !withReasons && !trackReason {
		detail.Reason = ldmodel.Reason{}
	}
	return detail
}

// selectorTrackReason reports whether the specific rule or fallthrough
// selector that produced reason has trackReason set, per spec §6's
// "reasons included ... when trackReason on the specific rule/fallthrough
// is true" clause.
func selectorTrackReason(flag ldmodel.Flag, reason ldmodel.Reason) bool {
	switch reason.Kind {
	case ldmodel.ReasonFallthrough:
		return flag.Fallthrough.TrackReason
	case ldmodel.ReasonRuleMatch:
		if reason.RuleIndex >= 0 && reason.RuleIndex < len(flag.Rules) {
			return flag.Rules[reason.RuleIndex].TrackReason
		}
	}
	return false
}

func (c *Client) emitFeatureEvent(key string, user *ldmodel.User, detail ldmodel.EvaluationDetail, fallback ldmodel.Value, version *int, trackEvents bool, debugUntil *int64, includeReason bool) {
	event := ldevents.FeatureEvent{
		CreationDateMs:       eval.NowMs(),
		Key:                  key,
		User:                 user,
		Value:                detail.Value,
		Variation:            detail.VariationIndex,
		Default:              fallback,
		Version:              version,
		TrackEvents:          trackEvents,
		DebugEventsUntilDate: debugUntil,
	}
	if includeReason {
		reason := detail.Reason
		event.Reason = &reason
	}
	c.sink.Dispatch(event)
}

// Identify records an explicit identify event, used to register a user's
// attributes with the service without an accompanying evaluation.
func (c *Client) Identify(user *ldmodel.User) {
	if user == nil {
		return
	}
	c.sink.Dispatch(ldevents.IdentifyEvent{CreationDateMs: eval.NowMs(), User: user})
}

// Track records a custom application event.
func (c *Client) Track(key string, user *ldmodel.User, data ldmodel.Value) {
	c.sink.Dispatch(ldevents.CustomEvent{CreationDateMs: eval.NowMs(), Key: key, User: user, Data: data})
}

// TrackMetric records a custom application event carrying a numeric metric.
func (c *Client) TrackMetric(key string, user *ldmodel.User, data ldmodel.Value, metricValue float64) {
	c.sink.Dispatch(ldevents.CustomEvent{CreationDateMs: eval.NowMs(), Key: key, User: user, Data: data, MetricValue: &metricValue})
}

// Flush forces an immediate delivery of any buffered events.
func (c *Client) Flush() { c.sink.Flush() }

// Close flushes outstanding events and stops the data source.
func (c *Client) Close() {
	c.sink.Close()
	c.source.Stop()
}
