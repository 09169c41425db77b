package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "KIKO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendSQL    = "sql"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv       = "KIKO_APP_ENV"
	EnvPort         = "KIKO_APP_PORT"
	EnvStoreBackend = "KIKO_STORE_BACKEND"
	EnvRedisURL     = "KIKO_REDIS_URL"
	EnvRedisAddr    = "KIKO_REDIS_ADDR"
	EnvDBDSN        = "KIKO_DB_DSN"
	EnvDBDriver     = "KIKO_DB_DRIVER"
	EnvDBHost       = "KIKO_DB_HOST"
	EnvDBUser       = "KIKO_DB_USER"
	EnvDBName       = "KIKO_DB_NAME"
	EnvJWTSecret    = "KIKO_JWT_SECRET"
	EnvJWTIssuer    = "KIKO_JWT_ISSUER"
	EnvFeedWindow   = "KIKO_FEED_DEFAULT_WINDOW"
	EnvFeedMax      = "KIKO_FEED_MAX_WINDOW"
)

var dbEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
