package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Name string `mapstructure:"name"`
		Port string `mapstructure:"port"`
	} `mapstructure:"app"`

	Log struct {
		Level      string `mapstructure:"level"`
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"log"`

	Postgres struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		DBName   string `mapstructure:"dbname"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
		MinConns int32  `mapstructure:"min_conns"`
	} `mapstructure:"postgres"`

	CBR struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"cbr"`

	Sync struct {
		Schedule    string `mapstructure:"schedule"`
		OnStart     bool   `mapstructure:"on_start"`
		BatchUpsert bool   `mapstructure:"batch_upsert"`
		BulkInsert  bool   `mapstructure:"bulk_insert"`
		SkipStale   bool   `mapstructure:"skip_stale"`
	} `mapstructure:"sync"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "currency-sync-service")
	v.SetDefault("app.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.dbname", "currency")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 50)
	v.SetDefault("postgres.min_conns", 5)

	v.SetDefault("cbr.base_url", "https://www.cbr.ru/scripts")
	v.SetDefault("cbr.timeout", 30*time.Second)

	// every day 10 AM Moscow, whatever the host time zone
	v.SetDefault("sync.schedule", "CRON_TZ=Europe/Moscow 0 10 * * *")
	v.SetDefault("sync.on_start", true)
	v.SetDefault("sync.batch_upsert", false)
	v.SetDefault("sync.bulk_insert", false)
	v.SetDefault("sync.skip_stale", false)
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../../config")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
