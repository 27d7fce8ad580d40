package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPostgres = `
database:
  host: localhost
  name: mbb
  user: mbb
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: minimalPostgres,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, StorePostgres, cfg.Store.Type)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "mbb", cfg.Database.Name)
				assert.Equal(t, "mbb", cfg.Database.User)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: minimalPostgres,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, 80, cfg.Pricing.ResaleBatteryThreshold)
				assert.InDelta(t, 0.10, cfg.Pricing.ResaleBatteryRate, 1e-9)
				assert.Equal(t, 30*24*time.Hour, cfg.Retention.ReturnedRetention)
				assert.Equal(t, 6*time.Hour, cfg.Retention.SweepInterval)
				assert.Equal(t, 100, cfg.Retention.SweepBatch)
				assert.InDelta(t, 0.5, cfg.Notifications.Discord.RatePerSec, 1e-9)
				assert.Equal(t, 5, cfg.Notifications.Discord.Burst)
				assert.Equal(t, "mailin-buyback.events", cfg.Notifications.Kafka.Topic)
				assert.Equal(t, "mailin-buyback", cfg.Telemetry.ServiceName)
				assert.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 1e-9)
				assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: minimalPostgres + `  password: "${TEST_DB_PASSWORD}"
notifications:
  discord:
    enabled: true
    webhook_url: "${TEST_DISCORD_URL}"
`,
			envVars: map[string]string{
				"TEST_DB_PASSWORD": "secret123",
				"TEST_DISCORD_URL": "https://discord.com/api/webhooks/1/abc",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Database.Password)
				assert.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.Notifications.Discord.WebhookURL)
			},
		},
		{
			name: "memory store needs no database",
			yaml: `
store:
  type: memory
pricing:
  tables_file: testdata/prices.yaml
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, StoreMemory, cfg.Store.Type)
				assert.Equal(t, "testdata/prices.yaml", cfg.Pricing.TablesFile)
			},
		},
		{
			name: "memory store requires price tables",
			yaml: `
store:
  type: memory
`,
			wantErr: "pricing.tables_file is required when store.type is memory",
		},
		{
			name: "unknown store type",
			yaml: `
store:
  type: redis
`,
			wantErr: `store.type must be one of: postgres, memory (got "redis")`,
		},
		{
			name: "missing required database.host",
			yaml: `
database:
  name: mbb
  user: mbb
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing required database.name",
			yaml: `
database:
  host: localhost
  user: mbb
`,
			wantErr: "database.name is required",
		},
		{
			name: "missing required database.user",
			yaml: `
database:
  host: localhost
  name: mbb
`,
			wantErr: "database.user is required",
		},
		{
			name: "resale rate out of range",
			yaml: minimalPostgres + `
pricing:
  resale_battery_rate: 1.5
`,
			wantErr: "pricing.resale_battery_rate must be between 0 and 1",
		},
		{
			name: "resale threshold out of range",
			yaml: minimalPostgres + `
pricing:
  resale_battery_threshold: 120
`,
			wantErr: "pricing.resale_battery_threshold must be between 1 and 100 (got 120)",
		},
		{
			name: "sweep interval too short",
			yaml: minimalPostgres + `
retention:
  sweep_interval: 10s
`,
			wantErr: "retention.sweep_interval must be at least 1m",
		},
		{
			name: "discord enabled without url",
			yaml: minimalPostgres + `
notifications:
  discord:
    enabled: true
`,
			wantErr: "notifications.discord.webhook_url: is required when enabled",
		},
		{
			name: "webhook with bad scheme",
			yaml: minimalPostgres + `
notifications:
  webhook:
    enabled: true
    url: ftp://example.com/hook
`,
			wantErr: `notifications.webhook.url: scheme must be http or https (got "ftp")`,
		},
		{
			name: "kafka enabled without brokers",
			yaml: minimalPostgres + `
notifications:
  kafka:
    enabled: true
`,
			wantErr: "notifications.kafka.brokers is required when kafka is enabled",
		},
		{
			name: "invalid log format",
			yaml: minimalPostgres + `
logging:
  format: xml
`,
			wantErr: `logging.format must be text or json (got "xml")`,
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
  shutdown_timeout: 20s
store:
  type: postgres
database:
  host: db.example.com
  port: 5433
  name: buyback_prod
  user: admin
  password: pass
  sslmode: require
  pool_size: 20
pricing:
  tables_file: /etc/mbb/prices.yaml
  resale_battery_threshold: 85
  resale_battery_rate: 0.15
retention:
  returned_retention: 720h
  sweep_interval: 1h
  sweep_batch: 50
notifications:
  discord:
    enabled: true
    webhook_url: https://discord.com/api/webhooks/123
    rate_per_sec: 1
    burst: 2
  webhook:
    enabled: true
    url: https://hooks.example.com/mbb
    headers:
      Authorization: Bearer token
  kafka:
    enabled: true
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    topic: mbb.lifecycle
telemetry:
  service_name: mbb-prod
  otlp_endpoint: otel-collector:4317
  insecure: true
  sample_ratio: 0.25
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, 20, cfg.Database.PoolSize)
				assert.Equal(t, "/etc/mbb/prices.yaml", cfg.Pricing.TablesFile)
				assert.Equal(t, 85, cfg.Pricing.ResaleBatteryThreshold)
				assert.InDelta(t, 0.15, cfg.Pricing.ResaleBatteryRate, 1e-9)
				assert.Equal(t, 720*time.Hour, cfg.Retention.ReturnedRetention)
				assert.Equal(t, time.Hour, cfg.Retention.SweepInterval)
				assert.Equal(t, 50, cfg.Retention.SweepBatch)
				assert.True(t, cfg.Notifications.Discord.Enabled)
				assert.Equal(t, 2, cfg.Notifications.Discord.Burst)
				assert.Equal(t, "Bearer token", cfg.Notifications.Webhook.Headers["Authorization"])
				assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Notifications.Kafka.Brokers)
				assert.Equal(t, "mbb.lifecycle", cfg.Notifications.Kafka.Topic)
				assert.Equal(t, "mbb-prod", cfg.Telemetry.ServiceName)
				assert.Equal(t, "otel-collector:4317", cfg.Telemetry.OTLPEndpoint)
				assert.True(t, cfg.Telemetry.Insecure)
				assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_JoinsAllErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
database:
  host: localhost
logging:
  format: xml
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.name is required")
	assert.Contains(t, err.Error(), "database.user is required")
	assert.Contains(t, err.Error(), "logging.format must be text or json")
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "basic DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "mbb",
				User:     "mbb",
				Password: "testpass",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 dbname=mbb user=mbb password=testpass sslmode=disable",
		},
		{
			name: "production DSN",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				Name:     "buyback",
				User:     "admin",
				Password: "s3cret",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 dbname=buyback user=admin password=s3cret sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
