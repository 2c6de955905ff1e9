// Package config loads basket's settings: built-in defaults, then an
// optional YAML file, then BASKET_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string       `yaml:"port" validate:"required"`
	DBPath       string       `yaml:"db_path" validate:"required"`
	LegacyDBPath string       `yaml:"legacy_db_path"`
	Log          LogConfig    `yaml:"log"`
	Widget       WidgetConfig `yaml:"widget"`
	Backup       BackupConfig `yaml:"backup"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// WidgetConfig controls the read-only widget timelines.
type WidgetConfig struct {
	MaxItems int           `yaml:"max_items" validate:"min=1,max=50"`
	Refresh  time.Duration `yaml:"refresh" validate:"min=1m"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// BackupConfig enables encrypted snapshots when S3 and a passphrase are
// set. ScheduleHour is the UTC hour of the daily run, -1 for none.
type BackupConfig struct {
	S3            S3Config `yaml:"s3"`
	Passphrase    string   `yaml:"passphrase"`
	ScheduleHour  int      `yaml:"schedule_hour" validate:"min=-1,max=23"`
	RetentionDays int      `yaml:"retention_days" validate:"min=1"`
}

func Default() *Config {
	return &Config{
		Port:   "8080",
		DBPath: "basket.db",
		Log:    LogConfig{Level: "info", Format: "text"},
		Widget: WidgetConfig{MaxItems: 5, Refresh: 15 * time.Minute},
		Backup: BackupConfig{
			S3:            S3Config{Region: "us-east-1"},
			ScheduleHour:  -1,
			RetentionDays: 30,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file or empty path leaves the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Port, "BASKET_PORT")
	setString(&c.DBPath, "BASKET_DB_PATH")
	setString(&c.LegacyDBPath, "BASKET_LEGACY_DB_PATH")
	setString(&c.Log.Level, "BASKET_LOG_LEVEL")
	setString(&c.Log.Format, "BASKET_LOG_FORMAT")
	setString(&c.Backup.S3.Endpoint, "BASKET_S3_ENDPOINT")
	setString(&c.Backup.S3.Bucket, "BASKET_S3_BUCKET")
	setString(&c.Backup.S3.Region, "BASKET_S3_REGION")
	setString(&c.Backup.S3.AccessKey, "BASKET_S3_ACCESS_KEY")
	setString(&c.Backup.S3.SecretKey, "BASKET_S3_SECRET_KEY")
	setString(&c.Backup.Passphrase, "BASKET_BACKUP_PASSPHRASE")

	if err := setInt(&c.Widget.MaxItems, "BASKET_WIDGET_MAX_ITEMS"); err != nil {
		return err
	}
	if err := setInt(&c.Backup.ScheduleHour, "BASKET_BACKUP_HOUR"); err != nil {
		return err
	}
	if err := setInt(&c.Backup.RetentionDays, "BASKET_BACKUP_RETENTION_DAYS"); err != nil {
		return err
	}
	if v := os.Getenv("BASKET_WIDGET_REFRESH"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse BASKET_WIDGET_REFRESH: %w", err)
		}
		c.Widget.Refresh = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = n
	return nil
}

// BackupEnabled reports whether enough is configured to take backups.
func (c *Config) BackupEnabled() bool {
	s := c.Backup.S3
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != "" && c.Backup.Passphrase != ""
}
