package datasource

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/xeipuuv/gojsonschema"

	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/metrics"
	"github.com/flagcore/flagcore-go/pkg/store"
)

// snapshotSchema validates the shape of a file-mode snapshot before it's
// applied to the store: a top-level object with optional "flags" and
// "segments" objects keyed by flag/segment key. This is the file-mode
// analogue of the server always returning a well-formed snapshot.
const snapshotSchema = `{
	"type": "object",
	"properties": {
		"flags": {"type": "object"},
		"segments": {"type": "object"}
	},
	"additionalProperties": false
}`

// File watches a single JSON file on disk and applies its contents to the
// store whenever it changes, for offline development and for "LDD" setups
// where a relay process writes the combined snapshot to a shared file
// instead of this SDK instance talking to the network directly.
type File struct {
	path  string
	store store.Store
	log   ldlog.Loggers

	schema      gojsonschema.JSONLoader
	watcher     *fsnotify.Watcher
	ready       *ReadySignal
	initialized atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}

	Metrics *metrics.Registry
}

func NewFile(path string, s store.Store, log ldlog.Loggers) *File {
	if log == nil {
		log = ldlog.NewDefaultLoggers()
	}
	return &File{path: path, store: s, log: log, schema: gojsonschema.NewStringLoader(snapshotSchema)}
}

func (f *File) Start(ctx context.Context) *ReadySignal {
	f.ready = NewReadySignal()
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.log.Errorf("failed to create file watcher: %v", err)
		f.ready.Signal()
		close(f.done)
		return f.ready
	}
	f.watcher = watcher

	if err := f.load(); err != nil {
		f.log.Errorf("failed to load %s: %v", f.path, err)
	} else {
		f.initialized.Store(true)
	}
	f.ready.Signal()

	if err := watcher.Add(f.path); err != nil {
		f.log.Errorf("failed to watch %s: %v", f.path, err)
	}

	go f.run(ctx)
	return f.ready
}

func (f *File) run(ctx context.Context) {
	defer close(f.done)
	defer f.watcher.Close()

	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := f.load(); err != nil {
					f.log.Errorf("failed to reload %s: %v", f.path, err)
					continue
				}
				f.initialized.Store(true)
				f.log.Infof("reloaded flag data from %s", f.path)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Errorf("file watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

func (f *File) load() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(f.schema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validating %s: %w", f.path, err)
	}
	if !result.Valid() {
		return fmt.Errorf("%s does not match the expected snapshot shape: %v", f.path, result.Errors())
	}

	snap, err := parseSnapshot(raw)
	if err != nil {
		return err
	}
	if err := f.store.Init(snapshotToStoreData(snap)); err != nil {
		return err
	}
	if f.Metrics != nil {
		f.Metrics.DataSourceStale.Set(0)
	}
	return nil
}

func (f *File) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	if f.done != nil {
		<-f.done
	}
}

func (f *File) Initialized() bool { return f.initialized.Load() }
