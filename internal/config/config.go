package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env           string     `yaml:"env" env:"APP_ENV" env-default:"local"`
	PublicBaseURL string     `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"http://localhost:8081"`
	HTTPServer    HTTPServer `yaml:"http_server"`
	CORS          CORS       `yaml:"cors"`
	Postgres      Postgres   `yaml:"postgres"`
	JWT           JWT        `yaml:"jwt"`
	ES            ES         `yaml:"elasticsearch"`
	Minio         Minio      `yaml:"minio"`
	Redis         Redis      `yaml:"redis"`
	SendGrid      SendGrid   `yaml:"sendgrid"`
	GitHub        GitHub     `yaml:"github"`
	OTP           OTP        `yaml:"otp"`
	Courses       Courses    `yaml:"courses"`
}

type Minio struct {
	Endpoint  string                  `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"minio:9000"`
	AccessKey string                  `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string                  `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	UseSSL    bool                    `yaml:"use_ssl"`
	Buckets   map[string]BucketConfig `yaml:"buckets"`
}

type BucketConfig struct {
	Name       string        `yaml:"name"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

const (
	BucketThumbnails  = "thumbnails"
	BucketSubmissions = "submissions"
)

type ES struct {
	Hosts    []string `yaml:"hosts"`
	Index    string   `yaml:"index" env-default:"courses"`
	Password string   `yaml:"password" env:"ELASTIC_PASSWORD"`
}

type JWT struct {
	SecretKey  string        `yaml:"secret_key" env:"JWT_SECRET"`
	Issuer     string        `yaml:"issuer" env-default:"lms"`
	AccessTTL  time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_token_ttl" env-default:"720h"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

type SendGrid struct {
	APIKey    string `yaml:"api_key" env:"SENDGRID_API_KEY"`
	FromName  string `yaml:"from_name" env-default:"LMS"`
	FromEmail string `yaml:"from_email" env-default:"no-reply@localhost"`
}

type GitHub struct {
	ClientID     string `yaml:"client_id" env:"GITHUB_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GITHUB_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url" env:"GITHUB_REDIRECT_URL"`
}

type OTP struct {
	TTL         time.Duration `yaml:"ttl" env-default:"5m"`
	MaxAttempts int           `yaml:"max_attempts" env-default:"5"`
}

type Courses struct {
	// DeletePolicy is "orphan" or "cascade".
	DeletePolicy string `yaml:"delete_policy" env:"COURSE_DELETE_POLICY" env-default:"orphan"`
}

type CORS struct {
	AllowOrigins []string `yaml:"allow_origins" env-default:"http://localhost:3000"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8081"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("can not read config file: %w", err)
	}
	if cfg.Courses.DeletePolicy != "orphan" && cfg.Courses.DeletePolicy != "cascade" {
		return nil, fmt.Errorf("courses.delete_policy must be orphan or cascade, got %q", cfg.Courses.DeletePolicy)
	}
	for _, name := range []string{BucketThumbnails, BucketSubmissions} {
		if _, ok := cfg.Minio.Buckets[name]; !ok {
			return nil, fmt.Errorf("minio.buckets.%s is not configured", name)
		}
	}

	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}
