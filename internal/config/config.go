package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-only-secret-change-me"

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		Environment        string   `mapstructure:"environment"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Email struct {
		From          string `mapstructure:"from"`
		FromName      string `mapstructure:"from_name"`
		SendGridKey   string `mapstructure:"sendgrid_api_key"`
		ResendKey     string `mapstructure:"resend_api_key"`
		BrevoKey      string `mapstructure:"brevo_api_key"`
		MailgunKey    string `mapstructure:"mailgun_api_key"`
		MailgunDomain string `mapstructure:"mailgun_domain"`
		SESAccessKey  string `mapstructure:"ses_access_key"`
	} `mapstructure:"email"`

	Backup struct {
		Bucket    string `mapstructure:"bucket"`
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Prefix    string `mapstructure:"prefix"`
	} `mapstructure:"backup"`

	Workflow struct {
		Timezone              string        `mapstructure:"timezone"`
		NotificationPoll      time.Duration `mapstructure:"notification_poll"`
		DatabaseSizeLimit     int64         `mapstructure:"database_size_limit"`
		MaxFailedLogins       int           `mapstructure:"max_failed_logins"`
		BroadcastPageSize     int           `mapstructure:"broadcast_page_size"`
		OutboxInterval        time.Duration `mapstructure:"outbox_interval"`
		OutboxMaxAttempts     int           `mapstructure:"outbox_max_attempts"`
		OutboxBatchSize       int           `mapstructure:"outbox_batch_size"`
		NotificationPageLimit int           `mapstructure:"notification_page_limit"`
	} `mapstructure:"workflow"`
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// BackupEnabled is true when an object storage bucket is configured.
func (c *Config) BackupEnabled() bool {
	return c.Backup.Bucket != "" && c.Backup.AccessKey != "" && c.Backup.SecretKey != ""
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET not set")
		}
		log.Printf("[Config] JWT_SECRET not set, using development secret")
		cfg.JWT.Secret = devJWTSecret
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "gestion_tecnica")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "gestion-backend")

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("email.from", "no-reply@gestiontecnica.local")
	v.SetDefault("email.from_name", "Sistema de Gestión Técnica")

	v.SetDefault("backup.region", "auto")
	v.SetDefault("backup.prefix", "backups/")

	v.SetDefault("workflow.timezone", "America/Caracas")
	v.SetDefault("workflow.notification_poll", 30*time.Second)
	v.SetDefault("workflow.database_size_limit", int64(500*1024*1024))
	v.SetDefault("workflow.max_failed_logins", 5)
	v.SetDefault("workflow.broadcast_page_size", 500)
	v.SetDefault("workflow.outbox_interval", 15*time.Second)
	v.SetDefault("workflow.outbox_max_attempts", 6)
	v.SetDefault("workflow.outbox_batch_size", 50)
	v.SetDefault("workflow.notification_page_limit", 50)
}

func applyEnvOverrides(cfg *Config) {
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Server.Environment = env
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	// Email provider keys, checked later in a fixed fallback order
	overrideString(&cfg.Email.SendGridKey, "SENDGRID_API_KEY")
	overrideString(&cfg.Email.ResendKey, "RESEND_API_KEY")
	overrideString(&cfg.Email.BrevoKey, "BREVO_API_KEY")
	overrideString(&cfg.Email.MailgunKey, "MAILGUN_API_KEY")
	overrideString(&cfg.Email.MailgunDomain, "MAILGUN_DOMAIN")
	overrideString(&cfg.Email.SESAccessKey, "AWS_SES_ACCESS_KEY")
	overrideString(&cfg.Email.From, "EMAIL_FROM")

	overrideString(&cfg.Backup.Bucket, "BACKUP_S3_BUCKET")
	overrideString(&cfg.Backup.Endpoint, "BACKUP_S3_ENDPOINT")
	overrideString(&cfg.Backup.Region, "BACKUP_S3_REGION")
	overrideString(&cfg.Backup.AccessKey, "BACKUP_S3_ACCESS_KEY")
	overrideString(&cfg.Backup.SecretKey, "BACKUP_S3_SECRET_KEY")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
