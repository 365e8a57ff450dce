package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Dump     DumpConfig     `yaml:"dump"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// DumpConfig holds dump import pipeline settings.
type DumpConfig struct {
	BaseURL         string        `yaml:"base_url"         env:"DUMP_BASE_URL"         env-default:"https://openlibrary.org/data"`
	TmpDir          string        `yaml:"tmp_dir"          env:"DUMP_TMP_DIR"          env-default:"/tmp"`
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"DUMP_DOWNLOAD_TIMEOUT" env-default:"6h"`
	BatchSize       int           `yaml:"batch_size"       env:"DUMP_BATCH_SIZE"       env-default:"500"`
	CommitInterval  int           `yaml:"commit_interval"  env:"DUMP_COMMIT_INTERVAL"  env-default:"10000"`
	ChunkSize       int           `yaml:"chunk_size"       env:"DUMP_CHUNK_SIZE"       env-default:"1000"`

	// The phase flags default to true in Load, not via env-default:
	// cleanenv re-applies a tag default over an explicit false from YAML
	// because false is the zero value.
	WikidataEnabled   bool `yaml:"wikidata_enabled"    env:"DUMP_WIKIDATA_ENABLED"`
	EditionsEnabled   bool `yaml:"editions_enabled"    env:"DUMP_EDITIONS_ENABLED"`
	RatingsEnabled    bool `yaml:"ratings_enabled"     env:"DUMP_RATINGS_ENABLED"`
	ReadingLogEnabled bool `yaml:"reading_log_enabled" env:"DUMP_READING_LOG_ENABLED"`
}

// CleanupConfig holds catalog cleanup worker settings.
type CleanupConfig struct {
	Interval         time.Duration `yaml:"interval"            env:"CLEANUP_INTERVAL"            env-default:"24h"`
	MinBookScore     int           `yaml:"min_book_score"      env:"CLEANUP_MIN_BOOK_SCORE"      env-default:"2"`
	DeleteBatchLimit int           `yaml:"delete_batch_limit"  env:"CLEANUP_DELETE_BATCH_LIMIT"  env-default:"5000"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
