// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/logs-drilldown/logql"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, DefaultLokiURL, cfg.Loki.URL)
	require.Equal(t, DefaultLokiTimeout, cfg.Loki.Timeout)
	require.Equal(t, DefaultMetadataTTL, cfg.Metadata.TTL)
	require.Equal(t, logql.AutoRange, cfg.Query.Range)
	require.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	require.Equal(t, DefaultHealthPort, cfg.Server.HealthPort)
	require.Empty(t, cfg.Server.PprofAddr)
	require.False(t, cfg.Debug)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOGSDRILLDOWN_LOKI_URL", "https://loki.example.com")
	t.Setenv("LOGSDRILLDOWN_LOKI_TENANT", "team-a")
	t.Setenv("LOGSDRILLDOWN_LOKI_TIMEOUT", "45s")
	t.Setenv("LOGSDRILLDOWN_METADATA_TTL", "2m")
	t.Setenv("LOGSDRILLDOWN_QUERY_RANGE", "5m")
	t.Setenv("LOGSDRILLDOWN_SERVER_ADDR", ":9090")
	t.Setenv("LOGSDRILLDOWN_SERVER_PPROF_ADDR", ":6060")
	t.Setenv("LOGSDRILLDOWN_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://loki.example.com", cfg.Loki.URL)
	require.Equal(t, "team-a", cfg.Loki.Tenant)
	require.Equal(t, 45*time.Second, cfg.Loki.Timeout)
	require.Equal(t, 2*time.Minute, cfg.Metadata.TTL)
	require.Equal(t, "5m", cfg.Query.Range)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, ":6060", cfg.Server.PprofAddr)
	require.True(t, cfg.Debug)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("relative loki url", func(t *testing.T) {
		t.Setenv("LOGSDRILLDOWN_LOKI_URL", "loki:3100")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("bad range", func(t *testing.T) {
		t.Setenv("LOGSDRILLDOWN_QUERY_RANGE", "five")
		_, err := Load()
		require.Error(t, err)
	})
}
