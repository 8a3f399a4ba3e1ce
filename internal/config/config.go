package config

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Ingest   IngestConfig
	Forecast ForecastConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	MaxUploadMB    int64
}

type DatabaseConfig struct {
	// Driver is the database/sql driver name: "postgres" (lib/pq) or "pgx".
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// DSN returns URL when set, otherwise a keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type AppConfig struct {
	UploadDir string
	DataDir   string
	// LedgerBackend selects the ledger store: "postgres" or "memory".
	LedgerBackend string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

type IngestConfig struct {
	MarkerToken    string
	ScanDepth      int
	Workers        int
	BatchSize      int
	RetryAttempts  int
	RetryBackoff   time.Duration
	ArchiveUploads bool
}

type ForecastConfig struct {
	LeadTimeDays int
	HorizonDays  int
}

type StorageConfig struct {
	// Provider is "sevalla" or "minio".
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
	DownloadDir     string
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure upload and data directories exist
		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("SERVER_MAX_UPLOAD_MB", 32)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "checkstock")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("LEDGER_BACKEND", "postgres")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_FORECAST_TTL_SECONDS", 300)
	viper.SetDefault("INGEST_MARKER_TOKEN", "LOC")
	viper.SetDefault("INGEST_SCAN_DEPTH", 12)
	viper.SetDefault("PIPELINE_WORKERS", 4)
	viper.SetDefault("PIPELINE_BATCH_SIZE", 500)
	viper.SetDefault("PIPELINE_RETRY_ATTEMPTS", 3)
	viper.SetDefault("PIPELINE_RETRY_BACKOFF", "2s")
	viper.SetDefault("INGEST_ARCHIVE_UPLOADS", false)
	viper.SetDefault("FORECAST_LEAD_TIME_DAYS", 7)
	viper.SetDefault("FORECAST_HORIZON_DAYS", 30)
	viper.SetDefault("STORAGE_PROVIDER", "sevalla")
	viper.SetDefault("STORAGE_REGION", "auto")
	viper.SetDefault("STORAGE_PREFIX", "checkstock")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/drive")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
}

func build() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			MaxUploadMB:    viper.GetInt64("SERVER_MAX_UPLOAD_MB"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt("DB_MAX_CONNS"),
		},
		App: AppConfig{
			UploadDir:     viper.GetString("APP_UPLOAD_DIR"),
			DataDir:       viper.GetString("APP_DATA_DIR"),
			LedgerBackend: viper.GetString("LEDGER_BACKEND"),
		},
		Cache: CacheConfig{
			Enabled:            viper.GetBool("CACHE_ENABLED"),
			RedisURL:           viper.GetString("REDIS_URL"),
			RedisHost:          viper.GetString("REDIS_HOST"),
			RedisPort:          viper.GetString("REDIS_PORT"),
			RedisPassword:      viper.GetString("REDIS_PASSWORD"),
			RedisDB:            viper.GetInt("REDIS_DB"),
			ForecastTTLSeconds: viper.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Ingest: IngestConfig{
			MarkerToken:    viper.GetString("INGEST_MARKER_TOKEN"),
			ScanDepth:      viper.GetInt("INGEST_SCAN_DEPTH"),
			Workers:        viper.GetInt("PIPELINE_WORKERS"),
			BatchSize:      viper.GetInt("PIPELINE_BATCH_SIZE"),
			RetryAttempts:  viper.GetInt("PIPELINE_RETRY_ATTEMPTS"),
			RetryBackoff:   viper.GetDuration("PIPELINE_RETRY_BACKOFF"),
			ArchiveUploads: viper.GetBool("INGEST_ARCHIVE_UPLOADS"),
		},
		Forecast: ForecastConfig{
			LeadTimeDays: viper.GetInt("FORECAST_LEAD_TIME_DAYS"),
			HorizonDays:  viper.GetInt("FORECAST_HORIZON_DAYS"),
		},
		Storage: StorageConfig{
			Provider:  viper.GetString("STORAGE_PROVIDER"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			Region:    viper.GetString("STORAGE_REGION"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsFile: viper.GetString("GOOGLE_CREDENTIALS_FILE"),
			FolderID:        viper.GetString("DRIVE_FOLDER_ID"),
			DownloadDir:     viper.GetString("DRIVE_DOWNLOAD_DIR"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
