package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the server, CLI and bot.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	DB       DBConfig       `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Import   ImportConfig   `mapstructure:"import"`
	Log      LogConfig      `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Debug    bool           `mapstructure:"debug"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig controls sessions and the registration gate.
// An empty RegistrationCode disables registration entirely.
type AuthConfig struct {
	RegistrationCode string        `mapstructure:"registration_code"`
	VerificationTTL  time.Duration `mapstructure:"verification_ttl"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	CookieName       string        `mapstructure:"cookie_name"`
	CookieSecure     bool          `mapstructure:"cookie_secure"`
}

type ImportConfig struct {
	Policy string `mapstructure:"policy"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

const envPrefix = "BRAINBOX"

// Load reads configuration from BRAINBOX_* environment variables and, when path
// is not empty, from a YAML file. Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.DB.DSN = strings.TrimSpace(cfg.DB.DSN)
	cfg.Auth.RegistrationCode = strings.TrimSpace(cfg.Auth.RegistrationCode)
	cfg.Import.Policy = strings.ToLower(strings.TrimSpace(cfg.Import.Policy))
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "brainbox.db")
	v.SetDefault("auth.registration_code", "")
	v.SetDefault("auth.verification_ttl", 10*time.Minute)
	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("auth.cookie_name", "brainbox_session")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("import.policy", "skip")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("telegram.token", "")
	v.SetDefault("debug", false)
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("db.driver must be sqlite or mysql, got %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	switch c.Import.Policy {
	case "skip", "abort":
	default:
		return fmt.Errorf("import.policy must be skip or abort, got %q", c.Import.Policy)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.VerificationTTL <= 0 {
		return fmt.Errorf("auth.verification_ttl must be positive")
	}
	if c.Auth.CookieName == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	return nil
}
