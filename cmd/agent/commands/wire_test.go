package commands

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/fareradar/configs"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBuildSourcesKeepsConfiguredOrder(t *testing.T) {
	cfg := configs.CollectorConfig{
		Sources:    []string{"expedia", "fareapi", "google_flights"},
		FareAPIURL: "http://127.0.0.1:1",
	}

	sources, err := buildSources(cfg, quietLogger())
	require.NoError(t, err)

	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, cfg.Sources, names)
}

func TestBuildSourcesRejectsUnknownName(t *testing.T) {
	_, err := buildSources(configs.CollectorConfig{Sources: []string{"expedia", "kayak"}}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"kayak"`)
}

func TestEverySourceFactoryBuildsItsNamedSource(t *testing.T) {
	for name, factory := range sourceFactories {
		t.Run(name, func(t *testing.T) {
			source := factory(configs.CollectorConfig{FareAPIURL: "http://127.0.0.1:1"}, quietLogger())
			assert.Equal(t, name, source.Name())
		})
	}
}
