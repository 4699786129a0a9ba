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
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"github.com/spf13/viper"

	"github.com/cardinalhq/logs-drilldown/logql"
)

// Config aggregates configuration for the application.
type Config struct {
	Loki     LokiConfig     `mapstructure:"loki"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Query    QueryConfig    `mapstructure:"query"`
	Server   ServerConfig   `mapstructure:"server"`
	Debug    bool           `mapstructure:"debug"`
}

type LokiConfig struct {
	URL     string        `mapstructure:"url"`
	Tenant  string        `mapstructure:"tenant"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetadataConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type QueryConfig struct {
	// Range is the range selector of metric queries.
	Range string `mapstructure:"range"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	HealthPort int    `mapstructure:"health_port"`
	// PprofAddr enables the pprof server when set.
	PprofAddr string `mapstructure:"pprof_addr"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Loki: LokiConfig{
			URL:     DefaultLokiURL,
			Timeout: DefaultLokiTimeout,
		},
		Metadata: MetadataConfig{TTL: DefaultMetadataTTL},
		Query:    QueryConfig{Range: logql.AutoRange},
		Server: ServerConfig{
			Addr:       DefaultServerAddr,
			HealthPort: DefaultHealthPort,
		},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "LOGSDRILLDOWN" and the dot character
// in keys is replaced by an underscore. For example, "loki.url" becomes
// "LOGSDRILLDOWN_LOKI_URL".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("LOGSDRILLDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot type check.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Loki.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("loki.url %q must be an absolute URL", c.Loki.URL)
	}
	if c.Query.Range != logql.AutoRange {
		if _, err := model.ParseDuration(c.Query.Range); err != nil {
			return fmt.Errorf("query.range %q: %w", c.Query.Range, err)
		}
	}
	return nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
