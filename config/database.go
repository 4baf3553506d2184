package config

import "time"

// DBConfig contains PostgreSQL database configuration for the profile store.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"admingate"`
	Password string `env:"PASSWORD" envDefault:"admingate"`
	Name     string `env:"NAME"     envDefault:"admingate"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// MaxConns caps the pgx pool size. Zero keeps the pgx default.
	MaxConns int32 `env:"MAX_CONNS" envDefault:"0"`
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig configures the Redis connection shared by login limiter instances.
type RedisConfig struct {
	// URI is host:port or a redis:// / rediss:// URL.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	// Timeout bounds dial, read and write. Logins fail closed once it elapses.
	Timeout  time.Duration `env:"TIMEOUT"   envDefault:"2s"`
	PoolSize int           `env:"POOL_SIZE" envDefault:"10"`
	// KeyPrefix namespaces limiter keys when Redis is shared with other services.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"admingate:login:"`
}
