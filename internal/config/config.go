package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects where subjects, ballots and the announcement live.
// Driver "json" keeps three JSON files under Dir; "database" uses Database.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
}

type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SecurityConfig struct {
	BcryptCost       int    `mapstructure:"bcrypt_cost"`
	EncryptionSecret string `mapstructure:"encryption_secret"`
	AdminKey         string `mapstructure:"admin_key"`
}

type OTPConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type AdminConfig struct {
	Roll        string `mapstructure:"roll"`
	Password    string `mapstructure:"password"`
	Email       string `mapstructure:"email"`
	SeedOnStart bool   `mapstructure:"seed_on_start"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type BackupConfig struct {
	Dir      string `mapstructure:"dir"`
	Schedule string `mapstructure:"schedule"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	OTP      OTPConfig      `mapstructure:"otp"`
	Mail     MailConfig     `mapstructure:"mail"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

// Development fallbacks. main logs a warning when any of them is in use.
const (
	DevJWTSecret        = "VOTING_SECRET_KEY_CHANGE_IN_PROD"
	DevAdminKey         = "ADMIN@2025"
	DevEncryptionSecret = "VOTE_ENCRYPTION_MASTER_KEY_32_BYTES!!"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.dir", "data")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/voting.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.log_mode", false)

	v.SetDefault("jwt.secret", DevJWTSecret)
	v.SetDefault("jwt.issuer", "university-voting-portal")
	v.SetDefault("jwt.expire_hours", 2)

	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.encryption_secret", DevEncryptionSecret)
	v.SetDefault("security.admin_key", DevAdminKey)

	v.SetDefault("otp.ttl_minutes", 5)

	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")

	v.SetDefault("admin.roll", "admin1")
	v.SetDefault("admin.password", "Admin@123")
	v.SetDefault("admin.email", "admin@university.edu")
	v.SetDefault("admin.seed_on_start", false)

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.schedule", "")
}

// Load reads configuration from path (default "config.yaml" in the working
// directory). A missing file is tolerated; defaults and VOTE_* environment
// variables (e.g. VOTE_JWT_SECRET) fill the gaps. A .env file is loaded first
// when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("VOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Security.EncryptionSecret == "" {
		return fmt.Errorf("security.encryption_secret is required")
	}
	if c.Security.AdminKey == "" {
		return fmt.Errorf("security.admin_key is required")
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("security.bcrypt_cost must be within %d-%d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch c.Storage.Driver {
	case "json", "database":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "database" {
		switch c.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
		}
	}
	return nil
}

// UsesDevSecrets reports whether any built-in development secret is active.
func (c *Config) UsesDevSecrets() bool {
	return c.JWT.Secret == DevJWTSecret ||
		c.Security.AdminKey == DevAdminKey ||
		c.Security.EncryptionSecret == DevEncryptionSecret
}
