package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// EnvPrefix scopes every environment variable the service reads.
const EnvPrefix = "EASYSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Checkout CheckoutConfig
	Features FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Checkout.Shipping(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EASYSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"EASYSHOP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"EASYSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EASYSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"EASYSHOP_DB_DSN"`

	Host     string `envconfig:"EASYSHOP_DB_HOST"`
	Port     int    `envconfig:"EASYSHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"EASYSHOP_DB_USER"`
	Password string `envconfig:"EASYSHOP_DB_PASSWORD"`
	Name     string `envconfig:"EASYSHOP_DB_NAME"`
	SSLMode  string `envconfig:"EASYSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EASYSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EASYSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EASYSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EASYSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EASYSHOP_REDIS_URL"`
	Address      string        `envconfig:"EASYSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"EASYSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"EASYSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EASYSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EASYSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EASYSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EASYSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EASYSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EASYSHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EASYSHOP_JWT_ISSUER" default:"easyshop"`
	ExpirationMinutes int    `envconfig:"EASYSHOP_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"EASYSHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"EASYSHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"EASYSHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"EASYSHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"EASYSHOP_ARGON_KEY_LEN" default:"32"`
}

// CheckoutConfig carries the checkout engine knobs. ShippingAmount is the flat
// per-order shipping charge added on top of the cart total.
type CheckoutConfig struct {
	ShippingAmount string        `envconfig:"EASYSHOP_CHECKOUT_SHIPPING_AMOUNT" default:"5.99"`
	LockTTL        time.Duration `envconfig:"EASYSHOP_CHECKOUT_LOCK_TTL" default:"30s"`
}

// Shipping parses the configured flat shipping amount.
func (c CheckoutConfig) Shipping() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.ShippingAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid shipping amount %q: %w", c.ShippingAmount, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("shipping amount must not be negative")
	}
	return amount, nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EASYSHOP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"EASYSHOP_DB_HOST": db.Host,
		"EASYSHOP_DB_USER": db.User,
		"EASYSHOP_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either EASYSHOP_DB_DSN or %s are required", strings.Join(missing, ", "))
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
