package datasource

import (
	"encoding/json"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// snapshot is the wire shape of a full /sdk/latest-all response and of a
// streamed "put" event's data payload: {flags:{...}, segments:{...}}.
type snapshot struct {
	Flags    map[string]ldmodel.Flag    `json:"flags"`
	Segments map[string]ldmodel.Segment `json:"segments"`
}

func parseSnapshot(body []byte) (snapshot, error) {
	var s snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return snapshot{}, err
	}
	return s, nil
}

func snapshotToStoreData(s snapshot) map[ldmodel.Kind]map[string]ldmodel.Item {
	flags := make(map[string]ldmodel.Item, len(s.Flags))
	for k, f := range s.Flags {
		f.Key = k
		flags[k] = f
	}
	segments := make(map[string]ldmodel.Item, len(s.Segments))
	for k, seg := range s.Segments {
		seg.Key = k
		segments[k] = seg
	}
	return map[ldmodel.Kind]map[string]ldmodel.Item{
		ldmodel.FlagKind:    flags,
		ldmodel.SegmentKind: segments,
	}
}

// patchPath identifies which kind+key a streamed patch/delete event targets,
// from a path of the form "/flags/<key>" or "/segments/<key>".
func patchPath(path string) (kind ldmodel.Kind, key string, ok bool) {
	const flagsPrefix = "/flags/"
	const segmentsPrefix = "/segments/"
	switch {
	case len(path) > len(flagsPrefix) && path[:len(flagsPrefix)] == flagsPrefix:
		return ldmodel.FlagKind, path[len(flagsPrefix):], true
	case len(path) > len(segmentsPrefix) && path[:len(segmentsPrefix)] == segmentsPrefix:
		return ldmodel.SegmentKind, path[len(segmentsPrefix):], true
	default:
		return "", "", false
	}
}
