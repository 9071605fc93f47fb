package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration: an ambient section
// (server identity, HTTP API, Postgres, NATS, JWT, logging) plus the
// Simulation section that maps onto a simcore.Config.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	JWT        JWTConfig        `yaml:"jwt"`
	Log        LogConfig        `yaml:"log"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ServerConfig identifies this deployment in logs and API responses.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig is the control-plane HTTP listener.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the Postgres settings used to persist simulation
// runs and their event logs. Only DSN is passed to NewPostgresStore; the
// pool fields are defaulted but not applied to the connection.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig configures the publisher that mirrors run events and
// metrics onto subjects external dashboards/CLIs can subscribe to.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	ClientID          string        `yaml:"client_id"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig configures the single operator bearer token issued by the
// control-plane API's auth endpoint.
type JWTConfig struct {
	Secret               string        `yaml:"secret"`
	TokenTTL             time.Duration `yaml:"token_ttl"`
	OperatorPasswordHash string        `yaml:"operator_password_hash"`
}

// LogConfig configures zerolog's global level. Format is defaulted but
// not read by the cmd binaries, which always use the console writer.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SimulationConfig is the on-disk shape of a simcore.Config: field
// names mirror the core's Config so Load's output maps onto it with a
// one-to-one conversion at the call site (see cmd/simrunner).
type SimulationConfig struct {
	Seed int64 `yaml:"seed"`

	NumNodes    int `yaml:"num_nodes"`
	NumGateways int `yaml:"num_gateways"`

	AreaSizeM float64 `yaml:"area_size_m"`

	Mode            string  `yaml:"mode"` // "random" | "periodic"
	PacketIntervalS float64 `yaml:"packet_interval_s"`

	DutyCycle float64 `yaml:"duty_cycle"`

	MobilityEnabled   bool    `yaml:"mobility_enabled"`
	MobilityIntervalS float64 `yaml:"mobility_interval_s"`

	NodeADREnabled   bool `yaml:"node_adr_enabled"`
	ServerADREnabled bool `yaml:"server_adr_enabled"`

	// PacketsToSend is a simulation-wide cap shared across all nodes, not
	// a per-node limit.
	PacketsToSend int `yaml:"packets_to_send"`

	ShadowingStdDB      float64 `yaml:"shadowing_std_db"`
	SimulationDurationS float64 `yaml:"simulation_duration_s"`
}

// Load reads and validates a YAML configuration file, then applies
// environment variable overrides for the secrets and endpoints that
// shouldn't live in a checked-in config file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}
	if passwordHash := os.Getenv("OPERATOR_PASSWORD_HASH"); passwordHash != "" {
		c.JWT.OperatorPasswordHash = passwordHash
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
	if seed := os.Getenv("SIM_SEED"); seed != "" {
		var parsed int64
		if _, err := fmt.Sscanf(seed, "%d", &parsed); err == nil {
			c.Simulation.Seed = parsed
		}
	}
}

func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "lorasim"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.JWT.TokenTTL == 0 {
		c.JWT.TokenTTL = 24 * time.Hour
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Simulation.Mode == "" {
		c.Simulation.Mode = "periodic"
	}
}

// validate checks the ambient sections; SimulationConfig's own
// parameters are validated by simcore.NewSimulator when the
// Simulation section is converted at the call site.
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret (or JWT_SECRET) must be set")
	}
	switch c.Simulation.Mode {
	case "random", "periodic":
	default:
		return fmt.Errorf("simulation.mode must be \"random\" or \"periodic\", got %q", c.Simulation.Mode)
	}
	return nil
}

// PrintSummary returns a one-line summary of the resolved configuration
// for the caller to log at startup, mirroring the operator-facing
// summary the teacher printed for its own config.
func (c *Config) PrintSummary() string {
	return fmt.Sprintf("%s v%s: %d nodes, %d gateways, mode=%s, interval=%.1fs, duty_cycle=%.3f, node_adr=%v, server_adr=%v",
		c.Server.Name, c.Server.Version,
		c.Simulation.NumNodes, c.Simulation.NumGateways,
		c.Simulation.Mode, c.Simulation.PacketIntervalS,
		c.Simulation.DutyCycle, c.Simulation.NodeADREnabled, c.Simulation.ServerADREnabled)
}
