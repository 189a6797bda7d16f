package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pstrings "smarttracing/pkg/platform/strings"
)

// Graph backends.
const (
	BackendMemory   = "memory"
	BackendGremlin  = "gremlin"
	BackendPostgres = "postgres"
)

// Config is the process configuration. Load fills it from defaults, then an
// optional YAML file, then SMARTTRACING_* environment variables.
type Config struct {
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
	Graph      Graph      `yaml:"graph"`
	Redis      Redis      `yaml:"redis"`
	Events     Events     `yaml:"events"`
	Onboarding Onboarding `yaml:"onboarding"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Graph selects and configures the graph engine. WriteEndpoint, Port, SSL and
// TraversalSource apply to the gremlin backend, PostgresDSN to postgres.
type Graph struct {
	Backend         string        `yaml:"backend"`
	WriteEndpoint   string        `yaml:"write_endpoint"`
	Port            int           `yaml:"port"`
	SSL             bool          `yaml:"ssl"`
	TraversalSource string        `yaml:"traversal_source"`
	PostgresDSN     string        `yaml:"postgres_dsn"`
	Timeout         time.Duration `yaml:"timeout"`
}

// GremlinURL is the websocket URL of the gremlin server.
func (g Graph) GremlinURL() string {
	scheme := "ws"
	if g.SSL {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/gremlin", scheme, g.WriteEndpoint, g.Port)
}

// Redis configures the orphan ledger store. An empty URL keeps the ledger in
// memory.
type Redis struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LedgerKey    string        `yaml:"ledger_key"`
}

// Events configures domain event publishing. Without brokers events are only
// logged.
type Events struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Buffer  int      `yaml:"buffer"`
}

type Onboarding struct {
	Policy            string        `yaml:"policy"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Graph: Graph{
			Backend:         BackendMemory,
			WriteEndpoint:   "localhost",
			Port:            8182,
			TraversalSource: "g",
			Timeout:         5 * time.Second,
		},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Events: Events{
			Topic:  "smarttracing.onboarding",
			Buffer: 256,
		},
		Onboarding: Onboarding{
			Policy:            "compensate",
			ReconcileInterval: time.Minute,
		},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	switch c.Graph.Backend {
	case BackendMemory:
	case BackendGremlin:
		if c.Graph.WriteEndpoint == "" || c.Graph.Port <= 0 {
			return fmt.Errorf("gremlin backend requires write_endpoint and port")
		}
	case BackendPostgres:
		if c.Graph.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown graph backend %q", c.Graph.Backend)
	}
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return fmt.Errorf("events topic is required when brokers are set")
	}
	if c.Onboarding.ReconcileInterval <= 0 {
		return fmt.Errorf("onboarding reconcile_interval must be positive")
	}
	return nil
}

const envPrefix = "SMARTTRACING_"

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	env := envReader{lookup: lookup}
	env.str("SERVER_ADDR", &cfg.Server.Addr)
	env.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	env.str("LOG_LEVEL", &cfg.Logging.Level)
	env.str("LOG_FORMAT", &cfg.Logging.Format)
	env.str("GRAPH_BACKEND", &cfg.Graph.Backend)
	env.str("GRAPH_WRITE_ENDPOINT", &cfg.Graph.WriteEndpoint)
	env.integer("GRAPH_PORT", &cfg.Graph.Port)
	env.boolean("GRAPH_SSL", &cfg.Graph.SSL)
	env.str("GRAPH_TRAVERSAL_SOURCE", &cfg.Graph.TraversalSource)
	env.str("GRAPH_POSTGRES_DSN", &cfg.Graph.PostgresDSN)
	env.duration("GRAPH_TIMEOUT", &cfg.Graph.Timeout)
	env.str("REDIS_URL", &cfg.Redis.URL)
	env.integer("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	env.str("REDIS_LEDGER_KEY", &cfg.Redis.LedgerKey)
	env.list("EVENTS_BROKERS", &cfg.Events.Brokers)
	env.str("EVENTS_TOPIC", &cfg.Events.Topic)
	env.integer("EVENTS_BUFFER", &cfg.Events.Buffer)
	env.str("ONBOARDING_POLICY", &cfg.Onboarding.Policy)
	env.duration("ONBOARDING_RECONCILE_INTERVAL", &cfg.Onboarding.ReconcileInterval)
	return env.err
}

// envReader applies overrides and keeps the first malformed value.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (r *envReader) get(name string) (string, bool) {
	v, ok := r.lookup(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (r *envReader) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
	}
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.get(name); ok {
		*dst = v
	}
}

func (r *envReader) integer(name string, dst *int) {
	if v, ok := r.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) boolean(name string, dst *bool) {
	if v, ok := r.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = b
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	if v, ok := r.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = d
	}
}

func (r *envReader) list(name string, dst *[]string) {
	if v, ok := r.get(name); ok {
		*dst = pstrings.DedupeAndTrim(strings.Split(v, ","))
	}
}
