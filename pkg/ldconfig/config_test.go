package ldconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStripsTrailingSlashes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURI = "https://sdk.example.com/"
	cfg.StreamURI = "https://stream.example.com/"
	cfg.EventsURI = "https://events.example.com/"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://sdk.example.com", cfg.BaseURI)
	assert.Equal(t, "https://stream.example.com", cfg.StreamURI)
	assert.Equal(t, "https://events.example.com", cfg.EventsURI)
}

func TestValidateClampsPollIntervalFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = time.Second

	require.NoError(t, cfg.Validate())
	assert.Equal(t, MinPollInterval, cfg.PollInterval)
}

func TestValidatePrefersDataSourceOverUpdateProcessorAlias(t *testing.T) {
	cfg := DefaultConfig()
	legacy := fakeFactory{name: "legacy"}
	preferred := fakeFactory{name: "preferred"}
	cfg.UpdateProcessor = legacy
	cfg.DataSource = preferred

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "preferred", cfg.DataSource.Name())
}

func TestValidateFallsBackToUpdateProcessorAlias(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpdateProcessor = fakeFactory{name: "legacy"}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "legacy", cfg.DataSource.Name())
}

type fakeFactory struct{ name string }

func (f fakeFactory) Name() string { return f.name }
