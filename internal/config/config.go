package config

import (
	"errors"
	"time"

	pkgconfig "github.com/weiawesome/snapgram/pkg/config"
	"github.com/weiawesome/snapgram/pkg/idgen"
	"github.com/weiawesome/snapgram/pkg/jwt"
	"github.com/weiawesome/snapgram/pkg/pubsub"
	"github.com/weiawesome/snapgram/pkg/storage"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      jwt.Config
	Redis    RedisConfig
	Cache    CacheConfig
	Feed     FeedConfig
	PubSub   pubsub.Config `mapstructure:"pubsub"`
	Search   SearchConfig
	Storage  storage.Config
	Media    MediaConfig
	ID       idgen.Config `mapstructure:"id"`
	CORS     CORSConfig   `mapstructure:"cors"`
	Log      LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// FeedConfig bounds every cursor-paginated listing.
type FeedConfig struct {
	DefaultLimit  int `mapstructure:"default_limit"`
	MaxLimit      int `mapstructure:"max_limit"`
	MaxAll        int `mapstructure:"max_all"`
	UserListLimit int `mapstructure:"user_list_limit"`
}

type SearchConfig struct {
	Driver      string   `mapstructure:"driver"` // "database", "elasticsearch"
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	IndexPosts  string   `mapstructure:"index_posts"`
	EnsureIndex bool     `mapstructure:"ensure_index"`
}

type MediaConfig struct {
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	MaxPixels      int64         `mapstructure:"max_pixels"`
	MaxWidth       int           `mapstructure:"max_width"`
	MaxHeight      int           `mapstructure:"max_height"`
	ThumbSize      int           `mapstructure:"thumb_size"`
	JpegQuality    int           `mapstructure:"jpeg_quality"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	PresignExpiry  time.Duration `mapstructure:"presign_expiry"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

var ErrMissingJWTSecret = errors.New("jwt.secret (JWT_SECRET) is required")

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "snapgram")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/snapgram.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("jwt.expiry", "720h")
	v.SetDefault("jwt.issuer", "snapgram")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.prefix", "post")
	v.SetDefault("cache.ttl", "60s")
	v.SetDefault("feed.default_limit", 10)
	v.SetDefault("feed.max_limit", 100)
	v.SetDefault("feed.max_all", 500)
	v.SetDefault("feed.user_list_limit", 50)
	v.SetDefault("pubsub.driver", "none")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.topic", "snapgram-events")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("pubsub.kafka.replication_factor", 1)
	v.SetDefault("search.driver", "database")
	v.SetDefault("search.addresses", []string{"http://localhost:9200"})
	v.SetDefault("search.index_posts", "snapgram-posts")
	v.SetDefault("search.ensure_index", true)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./data/media")
	v.SetDefault("storage.local.public_url", "/media")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("media.max_upload_bytes", 10<<20)
	v.SetDefault("media.max_pixels", 40_000_000)
	v.SetDefault("media.max_width", 1080)
	v.SetDefault("media.max_height", 1350)
	v.SetDefault("media.thumb_size", 320)
	v.SetDefault("media.jpeg_quality", 85)
	v.SetDefault("media.key_prefix", "posts/")
	v.SetDefault("media.presign_expiry", "15m")
	v.SetDefault("id.strategy", "uuid")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("database.log_level", "DB_LOG_LEVEL")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expiry", "JWT_EXPIRY")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("search.driver", "SEARCH_DRIVER")
	v.BindEnv("search.addresses", "ELASTICSEARCH_ADDRESSES")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.local.base_path", "STORAGE_LOCAL_PATH")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("id.strategy", "ID_STRATEGY")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if c.Feed.DefaultLimit <= 0 || c.Feed.MaxLimit < c.Feed.DefaultLimit {
		return errors.New("feed.default_limit must be positive and not exceed feed.max_limit")
	}
	return nil
}
