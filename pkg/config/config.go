package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Telegram     TelegramConfig
	Ledger       LedgerConfig
	Access       AccessConfig
	Delivery     DeliveryConfig
	Ops          OpsConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOVIELEX_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"MOVIELEX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOVIELEX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MOVIELEX_DB_DSN"`
	Driver string `envconfig:"MOVIELEX_DB_DRIVER" default:"sqlite"`

	SQLitePath string `envconfig:"MOVIELEX_SQLITE_PATH" default:"movielex.db"`

	LegacyHost     string `envconfig:"MOVIELEX_DB_HOST"`
	LegacyPort     int    `envconfig:"MOVIELEX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOVIELEX_DB_USER"`
	LegacyPassword string `envconfig:"MOVIELEX_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOVIELEX_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOVIELEX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOVIELEX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOVIELEX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOVIELEX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOVIELEX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOVIELEX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOVIELEX_REDIS_ADDR"`
	Password     string        `envconfig:"MOVIELEX_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOVIELEX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOVIELEX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOVIELEX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOVIELEX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOVIELEX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOVIELEX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type TelegramConfig struct {
	BotToken    string `envconfig:"MOVIELEX_TELEGRAM_BOT_TOKEN" required:"true"`
	AdminUserID int64  `envconfig:"MOVIELEX_TELEGRAM_ADMIN_USER_ID" required:"true"`
	CatalogURL  string `envconfig:"MOVIELEX_CATALOG_URL" default:"https://movielex.example"`
	BankDetails string `envconfig:"MOVIELEX_BANK_DETAILS"`
}

type LedgerConfig struct {
	DefaultBalance int `envconfig:"MOVIELEX_LEDGER_DEFAULT_BALANCE" default:"5000"`
}

type AccessConfig struct {
	VolumeThreshold int           `envconfig:"MOVIELEX_ACCESS_VOLUME_THRESHOLD" default:"5"`
	VolumeWindow    time.Duration `envconfig:"MOVIELEX_ACCESS_VOLUME_WINDOW" default:"24h"`
}

type DeliveryConfig struct {
	MaxRetries   int           `envconfig:"MOVIELEX_DELIVERY_MAX_RETRIES" default:"3"`
	RetryBackoff time.Duration `envconfig:"MOVIELEX_DELIVERY_RETRY_BACKOFF" default:"1s"`
}

type OpsConfig struct {
	Port string `envconfig:"MOVIELEX_OPS_PORT" default:"9090"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MOVIELEX_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"MOVIELEX_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MOVIELEX_USE_SQLITE" default:"true"`
	AutoMigrate bool `envconfig:"MOVIELEX_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}

	if useSQLite || strings.EqualFold(db.Driver, DriverSQLite) {
		db.Driver = DriverSQLite
		db.DSN = db.SQLitePath
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
