package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "sorter-station-service", cfg.ServiceName)
	assert.Equal(t, 20, cfg.Station.DefaultGridCount)
	assert.Equal(t, 50, cfg.Station.HistoryCapacity)
	assert.Equal(t, 500*time.Millisecond, cfg.Station.AutoClearDelay)
	assert.False(t, cfg.Station.ForceSorterAccess)
	assert.Equal(t, 7, cfg.Upstream.ContainerPage)
	assert.Equal(t, "wms.sorter-station.events", cfg.Kafka.Topic)
	assert.Equal(t, "scan_audit", cfg.MongoDB.Collection)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
environment: staging
station:
  defaultGridCount: 12
  autoClearDelay: 2s
upstream:
  baseUrl: https://wms.example.com
  centerId: FC-01
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STATION_DEFAULT_GRID_COUNT", "16")
	t.Setenv("STATION_FORCE_SORTER_ACCESS", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 16, cfg.Station.DefaultGridCount)
	assert.Equal(t, 2*time.Second, cfg.Station.AutoClearDelay)
	assert.True(t, cfg.Station.ForceSorterAccess)
	assert.Equal(t, "https://wms.example.com", cfg.Upstream.BaseURL)
	assert.Equal(t, "FC-01", cfg.Upstream.CenterID)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Station.HistoryCapacity)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "non numeric grid count", env: map[string]string{"STATION_DEFAULT_GRID_COUNT": "many"}},
		{name: "zero grid count", env: map[string]string{"STATION_DEFAULT_GRID_COUNT": "0"}},
		{name: "bad duration", env: map[string]string{"STATION_AUTO_CLEAR_DELAY": "soon"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "bad base url", env: map[string]string{"UPSTREAM_BASE_URL": "not a url"}},
		{name: "sample rate above one", env: map[string]string{"TRACING_SAMPLE_RATE": "1.5"}},
		{name: "bad bool", env: map[string]string{"KAFKA_ENABLED": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()

	assert.ErrorContains(t, err, "failed to read config file")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, splitList(" a:1, ,b:2 "))
}
