package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken     string       `yaml:"discord_token"`
	SettingsPath     string       `yaml:"settings_path"`
	BanListPath      string       `yaml:"ban_list_path"`
	LogLevel         string       `yaml:"log_level"`
	Language         string       `yaml:"language"`
	SuppressionLimit int          `yaml:"suppression_limit"`
	Health           HealthConfig `yaml:"health"`
	Sweep            SweepConfig  `yaml:"sweep"`
	Notifications    NotifyConfig `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SweepConfig controls the periodic member sweep.
type SweepConfig struct {
	IntervalSeconds   int     `yaml:"interval_seconds"`
	ActionsPerSecond  float64 `yaml:"actions_per_second"`
	PageSize          int     `yaml:"page_size"`
	MaxBackoffSeconds int     `yaml:"max_backoff_seconds"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Detect  int `yaml:"detect"`
	Success int `yaml:"success"`
	Info    int `yaml:"info"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		SettingsPath:     "config.json",
		BanListPath:      "ban_list.json",
		LogLevel:         "info",
		Language:         "en",
		SuppressionLimit: 1000,
		Health:           HealthConfig{Enabled: false, Addr: ":8080"},
		Sweep: SweepConfig{
			IntervalSeconds:   5,
			ActionsPerSecond:  2,
			PageSize:          1000,
			MaxBackoffSeconds: 300,
		},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Detect:  0xED4245,
				Success: 0x57F287,
				Info:    0x5865F2,
				Warning: 0xF59E0B,
				Error:   0xF97316,
			},
		},
	}
}

func Load() (Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs layers defaults, .env, the YAML file, environment and flags, in that order.
func LoadArgs(args []string) (Config, error) {
	cfg := DefaultConfig()

	flags := pflag.NewFlagSet("banguard", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML config file")
	settingsPath := flags.String("settings", "", "path to the settings document (config.json)")
	banListPath := flags.String("ban-list", "", "path to the ban list document (ban_list.json)")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	_ = godotenv.Load()

	path := *configPath
	if path == "" {
		path = envString("CONFIG_PATH", "config.yaml")
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if *settingsPath != "" {
		cfg.SettingsPath = *settingsPath
	}
	if *banListPath != "" {
		cfg.BanListPath = *banListPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	normalize(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.SettingsPath = envString("SETTINGS_PATH", cfg.SettingsPath)
	cfg.BanListPath = envString("BAN_LIST_PATH", cfg.BanListPath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Language = envString("LANGUAGE", cfg.Language)
	cfg.SuppressionLimit = envInt("SUPPRESSION_LIMIT", cfg.SuppressionLimit)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Sweep.IntervalSeconds = envInt("SWEEP_INTERVAL_SECONDS", cfg.Sweep.IntervalSeconds)
	cfg.Sweep.ActionsPerSecond = envFloat("SWEEP_ACTIONS_PER_SECOND", cfg.Sweep.ActionsPerSecond)
	cfg.Sweep.PageSize = envInt("SWEEP_PAGE_SIZE", cfg.Sweep.PageSize)
	cfg.Sweep.MaxBackoffSeconds = envInt("SWEEP_MAX_BACKOFF_SECONDS", cfg.Sweep.MaxBackoffSeconds)
	cfg.Notifications.EmbedColors.Detect = envInt("EMBED_COLOR_DETECT", cfg.Notifications.EmbedColors.Detect)
	cfg.Notifications.EmbedColors.Success = envInt("EMBED_COLOR_SUCCESS", cfg.Notifications.EmbedColors.Success)
	cfg.Notifications.EmbedColors.Info = envInt("EMBED_COLOR_INFO", cfg.Notifications.EmbedColors.Info)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func normalize(cfg *Config) {
	defaults := DefaultConfig()
	cfg.Language = normalizeLanguage(cfg.Language)
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = defaults.SettingsPath
	}
	if cfg.BanListPath == "" {
		cfg.BanListPath = defaults.BanListPath
	}
	if cfg.SuppressionLimit <= 0 {
		cfg.SuppressionLimit = defaults.SuppressionLimit
	}
	if cfg.Sweep.IntervalSeconds <= 0 {
		cfg.Sweep.IntervalSeconds = defaults.Sweep.IntervalSeconds
	}
	if cfg.Sweep.ActionsPerSecond <= 0 {
		cfg.Sweep.ActionsPerSecond = defaults.Sweep.ActionsPerSecond
	}
	if cfg.Sweep.PageSize <= 0 || cfg.Sweep.PageSize > 1000 {
		cfg.Sweep.PageSize = defaults.Sweep.PageSize
	}
	if cfg.Sweep.MaxBackoffSeconds < cfg.Sweep.IntervalSeconds {
		cfg.Sweep.MaxBackoffSeconds = cfg.Sweep.IntervalSeconds
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeLanguage(value string) string {
	switch strings.ToLower(value) {
	case "ja":
		return "ja"
	default:
		return "en"
	}
}
