package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port            int
	ModelPath       string
	StrictFields    bool
	MaxBatchSize    int
	DashboardPort   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

type ConfigFile struct {
	Server struct {
		Port            int    `yaml:"port"`
		ReadTimeout     string `yaml:"readTimeout"`
		WriteTimeout    string `yaml:"writeTimeout"`
		IdleTimeout     string `yaml:"idleTimeout"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	ML struct {
		ModelPath    string `yaml:"modelPath"`
		StrictFields bool   `yaml:"strictFields"`
		MaxBatchSize int    `yaml:"maxBatchSize"`
	} `yaml:"ml"`

	Monitor struct {
		DashboardPort int `yaml:"dashboardPort"`
	} `yaml:"monitor"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		Port:            getIntFromEnvOrConfig("PORT", config.Server.Port, 8000),
		ModelPath:       getEnvOrDefault("MODEL_PATH", orDefault(config.ML.ModelPath, "models/fraud_model.json")),
		StrictFields:    getBoolFromEnvOrConfig("STRICT_FIELDS", config.ML.StrictFields),
		MaxBatchSize:    getIntFromEnvOrConfig("MAX_BATCH_SIZE", config.ML.MaxBatchSize, 1000),
		DashboardPort:   getIntFromEnvOrConfig("DASHBOARD_PORT", config.Monitor.DashboardPort, 0),
		ReadTimeout:     parseDurationOrDefault(config.Server.ReadTimeout, 10*time.Second),
		WriteTimeout:    parseDurationOrDefault(config.Server.WriteTimeout, 30*time.Second),
		IdleTimeout:     parseDurationOrDefault(config.Server.IdleTimeout, 120*time.Second),
		ShutdownTimeout: parseDurationOrDefault(config.Server.ShutdownTimeout, 10*time.Second),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", orDefault(config.Log.Level, "info")),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:            getIntOrDefault("PORT", 8000),
		ModelPath:       getEnvOrDefault("MODEL_PATH", "models/fraud_model.json"),
		StrictFields:    getBoolOrDefault("STRICT_FIELDS", false),
		MaxBatchSize:    getIntOrDefault("MAX_BATCH_SIZE", 1000),
		DashboardPort:   getIntOrDefault("DASHBOARD_PORT", 0),
		ReadTimeout:     getDurationOrDefault("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationOrDefault("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getDurationOrDefault("IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout: getDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseDurationOrDefault(v string, defaultValue time.Duration) time.Duration {
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", settings.Port)
	}
	if settings.DashboardPort != 0 {
		if settings.DashboardPort < 1 || settings.DashboardPort > 65535 {
			return fmt.Errorf("dashboard port must be between 1 and 65535, got %d", settings.DashboardPort)
		}
		if settings.DashboardPort == settings.Port {
			return fmt.Errorf("dashboard port %d conflicts with the API port", settings.DashboardPort)
		}
	}

	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	if settings.MaxBatchSize < 1 || settings.MaxBatchSize > 100000 {
		return fmt.Errorf("max batch size must be between 1 and 100000, got %d", settings.MaxBatchSize)
	}

	if settings.ReadTimeout < time.Second || settings.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 1m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}
	if settings.ShutdownTimeout < time.Second || settings.ShutdownTimeout > time.Minute {
		return fmt.Errorf("shutdown timeout must be between 1s and 1m, got %v", settings.ShutdownTimeout)
	}

	switch settings.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error; got %q", settings.LogLevel)
	}

	return nil
}
