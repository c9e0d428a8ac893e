package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DEAL_SERVER_HTTP_ADDRESS.
const EnvPrefix = "DEAL"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig configures the network listeners.
type ServerConfig struct {
	HTTPAddress     string        `mapstructure:"http_address"`
	GRPCAddress     string        `mapstructure:"grpc_address"`
	PublicURL       string        `mapstructure:"public_url"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the Postgres pool. An empty URL disables persistence.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// RedisConfig configures the snapshot cache. An empty address disables it.
type RedisConfig struct {
	Address     string        `mapstructure:"address"`
	MaxIdle     int           `mapstructure:"max_idle"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// Enabled reports whether a cache is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// GameConfig tunes the game manager and the automated player.
type GameConfig struct {
	AICooldown     time.Duration `mapstructure:"ai_cooldown"`
	AIRespondDelay time.Duration `mapstructure:"ai_respond_delay"`
	AIScript       string        `mapstructure:"ai_script"`
	ReplayDir      string        `mapstructure:"replay_dir"`
	Deck           string        `mapstructure:"deck"`
	SeatTokenCost  int           `mapstructure:"seat_token_cost"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.grpc_address", ":9090")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.max_idle", 10)
	v.SetDefault("redis.idle_timeout", 60*time.Second)
	v.SetDefault("redis.snapshot_ttl", 2*time.Hour)

	v.SetDefault("game.ai_cooldown", 600*time.Millisecond)
	v.SetDefault("game.ai_respond_delay", time.Second)
	v.SetDefault("game.ai_script", "")
	v.SetDefault("game.replay_dir", "replays")
	v.SetDefault("game.deck", "standard")
	v.SetDefault("game.seat_token_cost", 10)
}

// Load reads configuration from path (optional), a .env file next to the working
// directory (optional) and DEAL_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Server.HTTPAddress == "" {
		return errors.New("server.http_address is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Game.AICooldown < 0 || c.Game.AIRespondDelay < 0 {
		return errors.New("game AI delays must not be negative")
	}
	if c.Game.SeatTokenCost < 4 || c.Game.SeatTokenCost > 31 {
		return fmt.Errorf("game.seat_token_cost must be between 4 and 31, got %d", c.Game.SeatTokenCost)
	}
	return nil
}
