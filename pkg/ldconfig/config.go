// Package ldconfig is the client's configuration value object: every knob
// that governs the data source, the event pipeline, and timeouts, plus the
// defaulting and validation rules spec'd for each.
package ldconfig

import (
	"strings"
	"time"

	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/store"
)

const MinPollInterval = 30 * time.Second

// DataSourceFactory lets tests and alternate deployments substitute a
// data source without the client needing to know about every variant's
// constructor; set via Config.DataSource (or the update_processor alias).
type DataSourceFactory interface {
	Name() string
}

// Config is the full set of recognized client options. DefaultConfig
// supplies the documented defaults; Validate re-applies the numeric and
// duration defaults when those fields are left at zero, and sets a default
// logger, but does not restore URIs or boolean options.
type Config struct {
	SDKKey string

	BaseURI   string
	StreamURI string
	EventsURI string

	Capacity              int
	FlushInterval         time.Duration
	UserKeysFlushInterval time.Duration
	UserKeysCapacity      int

	ReadTimeout    time.Duration
	ConnectTimeout time.Duration

	Stream       bool
	PollInterval time.Duration

	UseLDD              bool
	Offline             bool
	SendEvents          bool
	InlineUsersInEvents bool

	AllAttributesPrivate  bool
	PrivateAttributeNames []string

	FeatureStore store.Store

	// UpdateProcessor is the legacy name for DataSource; Validate prefers
	// DataSource when both are set (design note (c)).
	UpdateProcessor DataSourceFactory
	DataSource      DataSourceFactory

	Proxy string

	WaitForSeconds time.Duration

	Log ldlog.Loggers
}

// DefaultConfig returns a Config with every documented default applied and
// no SDK key set; callers fill in SDKKey and anything else before calling
// Validate.
func DefaultConfig() Config {
	return Config{
		BaseURI:               "https://sdk.example.com",
		StreamURI:             "https://stream.example.com",
		EventsURI:             "https://events.example.com",
		Capacity:              10000,
		FlushInterval:         10 * time.Second,
		UserKeysFlushInterval: 5 * time.Minute,
		UserKeysCapacity:      1000,
		ReadTimeout:           10 * time.Second,
		ConnectTimeout:        2 * time.Second,
		Stream:                true,
		PollInterval:          MinPollInterval,
		SendEvents:            true,
	}
}

// Validate applies defaulting/normalization rules spec'd in §6 and §9 in
// place: trailing slashes are stripped from every URI, the poll interval
// is floor-clamped (logged, not errored), and update_processor/data_source
// are reconciled to a single preferred factory.
func (c *Config) Validate() error {
	if c.Log == nil {
		c.Log = ldlog.NewDefaultLoggers()
	}

	c.BaseURI = strings.TrimRight(c.BaseURI, "/")
	c.StreamURI = strings.TrimRight(c.StreamURI, "/")
	c.EventsURI = strings.TrimRight(c.EventsURI, "/")

	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 10 * time.Second
	}
	if c.UserKeysFlushInterval <= 0 {
		c.UserKeysFlushInterval = 5 * time.Minute
	}
	if c.UserKeysCapacity <= 0 {
		c.UserKeysCapacity = 1000
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 2 * time.Second
	}
	if c.PollInterval < MinPollInterval {
		c.Log.Warnf("poll_interval %s is below the %s floor; clamping", c.PollInterval, MinPollInterval)
		c.PollInterval = MinPollInterval
	}

	// data_source is the newer name; update_processor is kept only for
	// callers that haven't migrated (design note (c)).
	if c.DataSource == nil && c.UpdateProcessor != nil {
		c.DataSource = c.UpdateProcessor
	}

	return nil
}
