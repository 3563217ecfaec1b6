package events

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/flagcore/flagcore-go/pkg/ldevents"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// encodeBatch renders the outbound buffer plus the summary event (if any)
// into one JSON array payload, using go-jsonstream's writer instead of
// encoding/json + interface{} trees so large batches avoid the
// reflection and intermediate-allocation cost of marshaling through Go
// values.
func (p *Pipeline) encodeBatch(outbound []ldevents.InputEvent, summary *summarizer) ([]byte, error) {
	w := jwriter.NewWriter()
	arr := w.Array()
	for _, e := range outbound {
		p.writeEvent(&w, e)
	}
	if summary != nil && !summary.Empty() {
		writeSummaryEvent(&w, summary)
	}
	arr.End()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (p *Pipeline) writeEvent(w *jwriter.Writer, e ldevents.InputEvent) {
	switch ev := e.(type) {
	case ldevents.FeatureEvent:
		p.writeFeatureEvent(w, ev)
	case ldevents.IdentifyEvent:
		p.writeIdentifyEvent(w, ev)
	case ldevents.CustomEvent:
		p.writeCustomEvent(w, ev)
	case ldevents.IndexEvent:
		p.writeIndexEvent(w, ev)
	}
}

func (p *Pipeline) writeFeatureEvent(w *jwriter.Writer, e ldevents.FeatureEvent) {
	obj := w.Object()
	debug := !e.TrackEvents && e.DebugEventsUntilDate != nil
	if debug {
		obj.Name("kind").String("debug")
	} else {
		obj.Name("kind").String("feature")
	}
	obj.Name("creationDate").Int(int(e.CreationDateMs))
	obj.Name("key").String(e.Key)
	if e.Version != nil {
		obj.Name("version").Int(*e.Version)
	}
	if e.Variation != nil {
		obj.Name("variation").Int(*e.Variation)
	}
	writeValue(obj.Name("value"), e.Value)
	writeValue(obj.Name("default"), e.Default)
	if e.PrereqOf != nil {
		obj.Name("prereqOf").String(*e.PrereqOf)
	}
	if e.Reason != nil {
		writeReason(obj.Name("reason"), *e.Reason)
	}
	p.writeUserRef(w, obj, e.User, p.inlineUsers)
	obj.End()
}

func (p *Pipeline) writeIdentifyEvent(w *jwriter.Writer, e ldevents.IdentifyEvent) {
	obj := w.Object()
	obj.Name("kind").String("identify")
	obj.Name("creationDate").Int(int(e.CreationDateMs))
	p.writeUserRef(w, obj, e.User, true)
	obj.End()
}

func (p *Pipeline) writeCustomEvent(w *jwriter.Writer, e ldevents.CustomEvent) {
	obj := w.Object()
	obj.Name("kind").String("custom")
	obj.Name("creationDate").Int(int(e.CreationDateMs))
	obj.Name("key").String(e.Key)
	if !e.Data.IsNull() {
		writeValue(obj.Name("data"), e.Data)
	}
	if e.MetricValue != nil {
		obj.Name("metricValue").Float64(*e.MetricValue)
	}
	p.writeUserRef(w, obj, e.User, false)
	obj.End()
}

func (p *Pipeline) writeIndexEvent(w *jwriter.Writer, e ldevents.IndexEvent) {
	obj := w.Object()
	obj.Name("kind").String("index")
	obj.Name("creationDate").Int(int(e.CreationDateMs))
	p.writeUserRef(w, obj, e.User, true)
	obj.End()
}

// writeUserRef writes either "user" (the full, privacy-redacted user) or
// "userKey" depending on inlineUsers, matching the feature/identify/index
// wire contract each caller opts into. w and obj refer to the same
// in-progress object; obj.Name just returns w positioned to write the
// next property's value. Redaction uses the pipeline's configured privacy
// rules, not a caller-supplied override.
func (p *Pipeline) writeUserRef(w *jwriter.Writer, obj jwriter.ObjectState, u *ldmodel.User, inline bool) {
	if u == nil {
		return
	}
	if !inline {
		obj.Name("userKey").String(u.Key)
		return
	}
	writeRedactedUser(obj.Name("user"), redactUser(u, p.cfg.AllAttributesPrivate, p.cfg.PrivateAttributeNames))
}

func writeRedactedUser(w *jwriter.Writer, u redactedUser) {
	obj := w.Object()
	obj.Name("key").String(u.Key)
	if u.Secondary != "" {
		obj.Name("secondary").String(u.Secondary)
	}
	if u.IP != "" {
		obj.Name("ip").String(u.IP)
	}
	if u.Country != "" {
		obj.Name("country").String(u.Country)
	}
	if u.Email != "" {
		obj.Name("email").String(u.Email)
	}
	if u.FirstName != "" {
		obj.Name("firstName").String(u.FirstName)
	}
	if u.LastName != "" {
		obj.Name("lastName").String(u.LastName)
	}
	if u.Avatar != "" {
		obj.Name("avatar").String(u.Avatar)
	}
	if u.Name != "" {
		obj.Name("name").String(u.Name)
	}
	if u.Anonymous {
		obj.Name("anonymous").Bool(true)
	}
	if len(u.Custom) > 0 {
		customWriter := obj.Name("custom")
		customObj := customWriter.Object()
		for k, v := range u.Custom {
			writeValue(customObj.Name(k), v)
		}
		customObj.End()
	}
	if len(u.PrivateAttrs) > 0 {
		attrsWriter := obj.Name("privateAttrs")
		attrsArr := attrsWriter.Array()
		for _, n := range u.PrivateAttrs {
			attrsWriter.String(n)
		}
		attrsArr.End()
	}
	obj.End()
}

func writeValue(w *jwriter.Writer, v ldmodel.Value) {
	switch v.Kind() {
	case ldmodel.KindNull:
		w.Null()
	case ldmodel.KindBool:
		b, _ := v.BoolValue()
		w.Bool(b)
	case ldmodel.KindNumber:
		n, _ := v.NumberValue()
		w.Float64(n)
	case ldmodel.KindString:
		s, _ := v.StringValue()
		w.String(s)
	case ldmodel.KindArray:
		a, _ := v.ArrayValue()
		arr := w.Array()
		for _, e := range a {
			writeValue(w, e)
		}
		arr.End()
	case ldmodel.KindObject:
		o, _ := v.ObjectValue()
		obj := w.Object()
		for k, e := range o {
			writeValue(obj.Name(k), e)
		}
		obj.End()
	}
}

func writeReason(w *jwriter.Writer, r ldmodel.Reason) {
	obj := w.Object()
	obj.Name("kind").String(string(r.Kind))
	switch r.Kind {
	case ldmodel.ReasonRuleMatch:
		obj.Name("ruleIndex").Int(r.RuleIndex)
		obj.Name("ruleId").String(r.RuleID)
	case ldmodel.ReasonPrerequisiteFailed:
		obj.Name("prerequisiteKey").String(r.PrerequisiteKey)
	case ldmodel.ReasonError:
		obj.Name("errorKind").String(string(r.ErrorKind))
	}
	obj.End()
}

func writeSummaryEvent(w *jwriter.Writer, s *summarizer) {
	obj := w.Object()
	obj.Name("kind").String("summary")
	obj.Name("startDate").Int(int(s.startDate))
	obj.Name("endDate").Int(int(s.endDate))

	featuresWriter := obj.Name("features")
	features := featuresWriter.Object()
	byFlag := map[string][]counterEntry{}
	for key, c := range s.counters {
		byFlag[key.FlagKey] = append(byFlag[key.FlagKey], counterEntry{key: key, counter: c})
	}
	for flagKey, entries := range byFlag {
		flagWriter := features.Name(flagKey)
		flagObj := flagWriter.Object()
		if len(entries) > 0 {
			writeValue(flagObj.Name("default"), entries[0].counter.Default)
		}
		countersWriter := flagObj.Name("counters")
		countersArr := countersWriter.Array()
		for _, ce := range entries {
			cObj := countersWriter.Object()
			writeValue(cObj.Name("value"), ce.counter.Value)
			cObj.Name("count").Int(ce.counter.Count)
			if ce.key.HasVer {
				cObj.Name("version").Int(ce.key.Version)
			} else {
				cObj.Name("unknown").Bool(true)
			}
			cObj.End()
		}
		countersArr.End()
		flagObj.End()
	}
	features.End()
	obj.End()
}

type counterEntry struct {
	key     counterKey
	counter *counter
}
