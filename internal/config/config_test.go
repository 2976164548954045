package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultZoneServer_Valid(t *testing.T) {
	require.NoError(t, DefaultZoneServer().Validate())
}

func TestLoadZoneServer_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadZoneServer(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultZoneServer(), cfg)
}

func TestLoadZoneServer_OverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoneserver.yaml")
	body := `
log_level: debug
database:
  dialect: sqlite
  sqlite_path: /tmp/zones.sqlite
heat:
  lockdown_duration: 5m
negotiation:
  max_rounds: 5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadZoneServer(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DialectSQLite, cfg.Database.Dialect)
	assert.Equal(t, 5*time.Minute, cfg.Heat.LockdownDuration)
	assert.Equal(t, 5, cfg.Negotiation.MaxRounds)
	// untouched fields keep defaults
	assert.Equal(t, 85.0, cfg.Heat.LockdownThreshold)
	assert.Equal(t, 0.75, cfg.Negotiation.OpeningFraction)
}

func TestLoadZoneServer_RejectsBadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoneserver.yaml")
	body := `
heat:
  reduced_threshold: 90
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadZoneServer(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heat thresholds")
}

func TestLoadZoneServer_RejectsUnknownDialect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoneserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dialect: mysql\n"), 0o644))

	_, err := LoadZoneServer(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestLoadZoneServer_AdminPortWithoutObserver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoneserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("observer:\n  enabled: false\nadmin:\n  port: 0\n"), 0o644))

	_, err := LoadZoneServer(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin.port")

	require.NoError(t, os.WriteFile(path, []byte("observer:\n  enabled: false\n"), 0o644))
	cfg, err := LoadZoneServer(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8090", cfg.Admin.Addr())
}

func TestReputation_SaleGain(t *testing.T) {
	r := DefaultReputation()
	assert.Equal(t, 2.0, r.SaleGain(1))
	assert.Equal(t, 4.0, r.SaleGain(3))
	assert.Equal(t, 2.0, r.SaleGain(0), "non-positive quantity counts as one unit")
}

func TestTimeWindow_Contains(t *testing.T) {
	tests := []struct {
		name string
		w    TimeWindow
		hour int
		want bool
	}{
		{"inside plain window", TimeWindow{FromHour: 4, ToHour: 9}, 6, true},
		{"end is exclusive", TimeWindow{FromHour: 4, ToHour: 9}, 9, false},
		{"wrapping window late", TimeWindow{FromHour: 22, ToHour: 4}, 23, true},
		{"wrapping window early", TimeWindow{FromHour: 22, ToHour: 4}, 2, true},
		{"wrapping window outside", TimeWindow{FromHour: 22, ToHour: 4}, 12, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.Contains(tt.hour))
		})
	}
}

func TestBuyer_TimeMultiplier(t *testing.T) {
	b := DefaultBuyer()
	assert.Equal(t, 1.5, b.TimeMultiplier(23))
	assert.Equal(t, 0.5, b.TimeMultiplier(5))
	assert.Equal(t, 1.0, b.TimeMultiplier(14))
}

func TestHeat_SaleHeat(t *testing.T) {
	h := DefaultHeat()
	assert.InDelta(t, 3.0, h.SaleHeat(3), 1e-9)
	assert.InDelta(t, 1.5, h.SaleHeat(0), 1e-9)
}
