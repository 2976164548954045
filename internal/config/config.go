package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ZoneServer holds all configuration for the zone server.
type ZoneServer struct {
	LogLevel string `yaml:"log_level"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// CatalogPath points at a YAML zone catalog. Empty uses the built-in catalog.
	CatalogPath string `yaml:"catalog_path"`

	// AuthorityTimeout bounds each call to the inventory/money authority.
	AuthorityTimeout time.Duration `yaml:"authority_timeout"`

	// SessionIdleTTL disconnects players whose position has not been
	// reported for this long.
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	// SweepInterval is how often expired sessions and idle players are swept.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	Observer ObserverConfig `yaml:"observer"`
	Admin    AdminConfig    `yaml:"admin"`
	Journal  JournalConfig  `yaml:"journal"`

	Heat        Heat        `yaml:"heat"`
	Reputation  Reputation  `yaml:"reputation"`
	Negotiation Negotiation `yaml:"negotiation"`
	Risk        Risk        `yaml:"risk"`
	Buyer       Buyer       `yaml:"buyer"`
	Security    Security    `yaml:"security"`
	Delivery    Delivery    `yaml:"delivery"`
}

// DatabaseConfig holds connection parameters. Dialect selects the backend:
// "postgres" (pgx pool) or "sqlite" (single-node file database).
type DatabaseConfig struct {
	Dialect    string `yaml:"dialect"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"dbname"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Supported database dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ObserverConfig controls the websocket zone event stream.
type ObserverConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	// SendQueueSize is the per-subscriber outbox capacity; slow subscribers drop events.
	SendQueueSize int `yaml:"send_queue_size"`
}

// Addr returns host:port for the HTTP listener.
func (o ObserverConfig) Addr() string {
	return fmt.Sprintf("%s:%d", o.BindAddress, o.Port)
}

// AdminConfig is the standalone admin listener. It is used only while the
// observer is disabled; otherwise POST /admin is served by the observer.
type AdminConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

// Addr returns host:port for the admin listener.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.BindAddress, a.Port)
}

// JournalConfig controls the compressed economic audit journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DefaultZoneServer returns ZoneServer config with sensible defaults.
func DefaultZoneServer() ZoneServer {
	return ZoneServer{
		LogLevel:         "info",
		AuthorityTimeout: 3 * time.Second,
		SessionIdleTTL:   10 * time.Minute,
		SweepInterval:    30 * time.Second,
		Database: DatabaseConfig{
			Dialect:    DialectPostgres,
			Host:       "127.0.0.1",
			Port:       5432,
			User:       "hotzone",
			Password:   "hotzone",
			DBName:     "hotzone",
			SSLMode:    "disable",
			SQLitePath: "data/hotzone.sqlite",
		},
		Observer: ObserverConfig{
			Enabled:       true,
			BindAddress:   "127.0.0.1",
			Port:          8089,
			SendQueueSize: 256,
		},
		Admin: AdminConfig{
			BindAddress: "127.0.0.1",
			Port:        8090,
		},
		Journal: JournalConfig{
			Enabled: true,
			Dir:     "data/journal",
		},
		Heat:        DefaultHeat(),
		Reputation:  DefaultReputation(),
		Negotiation: DefaultNegotiation(),
		Risk:        DefaultRisk(),
		Buyer:       DefaultBuyer(),
		Security:    DefaultSecurity(),
		Delivery:    DefaultDelivery(),
	}
}

// LoadZoneServer loads zone server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadZoneServer(path string) (ZoneServer, error) {
	cfg := DefaultZoneServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints once at load time so that callers
// never re-check them at each access site.
func (c ZoneServer) Validate() error {
	var errs []error

	switch c.Database.Dialect {
	case DialectPostgres, DialectSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.dialect %q: want %q or %q", c.Database.Dialect, DialectPostgres, DialectSQLite))
	}

	if !c.Observer.Enabled && (c.Admin.Port <= 0 || c.Admin.Port > 65535) {
		errs = append(errs, fmt.Errorf("admin.port %d: observer is disabled, admin needs its own port", c.Admin.Port))
	}

	if c.SessionIdleTTL <= 0 || c.SweepInterval <= 0 {
		errs = append(errs, errors.New("session_idle_ttl and sweep_interval must be positive"))
	}

	errs = append(errs, c.Heat.validate(), c.Reputation.validate(), c.Negotiation.validate(),
		c.Risk.validate(), c.Buyer.validate(), c.Security.validate(), c.Delivery.validate())

	return errors.Join(errs...)
}
