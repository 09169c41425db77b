package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	Redis    RedisConfig
	DB       DBConfig
	JWT      JWTConfig
	Password PasswordConfig
	Feed     FeedConfig
	Avatar   AvatarConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Backend == StoreBackendSQL {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Store.Backend == StoreBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("either %s or %s is required for the redis store", EnvRedisURL, EnvRedisAddr)
	}
	if cfg.Feed.MaxWindow < cfg.Feed.DefaultWindow {
		cfg.Feed.MaxWindow = cfg.Feed.DefaultWindow
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KIKO_APP_ENV" required:"true"`
	Port         string `envconfig:"KIKO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"KIKO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KIKO_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"KIKO_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// StoreConfig selects the record store adapter the engine talks to.
type StoreConfig struct {
	Backend   string `envconfig:"KIKO_STORE_BACKEND" default:"redis"`
	Namespace string `envconfig:"KIKO_STORE_NAMESPACE" default:"kiko"`
}

func (s StoreConfig) validate() error {
	switch s.Backend {
	case StoreBackendMemory, StoreBackendRedis, StoreBackendSQL:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvStoreBackend, StoreBackendMemory, StoreBackendRedis, StoreBackendSQL)
}

type RedisConfig struct {
	URL          string        `envconfig:"KIKO_REDIS_URL"`
	Address      string        `envconfig:"KIKO_REDIS_ADDR"`
	Password     string        `envconfig:"KIKO_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIKO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIKO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIKO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIKO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIKO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIKO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	DSN    string `envconfig:"KIKO_DB_DSN"`
	Driver string `envconfig:"KIKO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"KIKO_DB_HOST"`
	Port     int    `envconfig:"KIKO_DB_PORT" default:"5432"`
	User     string `envconfig:"KIKO_DB_USER"`
	Password string `envconfig:"KIKO_DB_PASSWORD"`
	Name     string `envconfig:"KIKO_DB_NAME"`
	SSLMode  string `envconfig:"KIKO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIKO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIKO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIKO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIKO_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"KIKO_DB_AUTO_MIGRATE" default:"false"`
}

// IsSQLite reports whether the SQL store runs on the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// JWTConfig describes the identity provider's token contract.
type JWTConfig struct {
	Secret            string `envconfig:"KIKO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KIKO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KIKO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KIKO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KIKO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KIKO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KIKO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KIKO_ARGON_KEY_LEN" default:"32"`
}

type FeedConfig struct {
	DefaultWindow     int           `envconfig:"KIKO_FEED_DEFAULT_WINDOW" default:"20"`
	MaxWindow         int           `envconfig:"KIKO_FEED_MAX_WINDOW" default:"50"`
	MaxPostLength     int           `envconfig:"KIKO_FEED_MAX_POST_LENGTH" default:"5000"`
	PostRateLimit     int           `envconfig:"KIKO_FEED_POST_RATE_LIMIT" default:"10"`
	PostRateLimitSpan time.Duration `envconfig:"KIKO_FEED_POST_RATE_LIMIT_WINDOW" default:"1m"`
}

// AvatarConfig feeds the placeholder avatar URL builder.
type AvatarConfig struct {
	PlaceholderBaseURL string `envconfig:"KIKO_AVATAR_PLACEHOLDER_URL" default:"https://ui-avatars.com/api/"`
	Background         string `envconfig:"KIKO_AVATAR_BACKGROUND" default:"667eea"`
	Foreground         string `envconfig:"KIKO_AVATAR_FOREGROUND" default:"fff"`
}

// EnsureDSN builds the DSN from discrete settings when none is given.
func (db *DBConfig) EnsureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file::memory:?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
