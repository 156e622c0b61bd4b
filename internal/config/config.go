package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the kiosk and the backend. Values are
// read from an optional YAML file and then overridden by the environment.
type Config struct {
	AppEnv string       `yaml:"app_env"`
	Kiosk  KioskConfig  `yaml:"kiosk"`
	Server ServerConfig `yaml:"server"`
}

// KioskConfig configures the booth terminal.
type KioskConfig struct {
	BackendURL  string        `yaml:"backend_url"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Identity    string        `yaml:"identity"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Audio       AudioConfig   `yaml:"audio"`
}

// AudioConfig configures microphone capture.
type AudioConfig struct {
	Command     string `yaml:"command"`
	InputFormat string `yaml:"input_format"`
	InputDevice string `yaml:"input_device"`
	SampleRate  int    `yaml:"sample_rate"`
	Channels    int    `yaml:"channels"`
}

// ServerConfig configures the reference backend.
type ServerConfig struct {
	HTTPAddr              string        `yaml:"http_addr"`
	DBDriver              string        `yaml:"db_driver"`
	DBPath                string        `yaml:"db_path"`
	RedisAddr             string        `yaml:"redis_addr"`
	CacheTTL              time.Duration `yaml:"cache_ttl"`
	GRPCPort              int           `yaml:"grpc_port"`
	GRPCReflectionEnabled bool          `yaml:"grpc_reflection_enabled"`
	KafkaEnabled          bool          `yaml:"kafka_enabled"`
	KafkaBrokers          []string      `yaml:"kafka_brokers"`
	KafkaTopic            string        `yaml:"kafka_topic"`
	STTProvider           string        `yaml:"stt_provider"`
	STTLanguage           string        `yaml:"stt_language"`
	STTStaticText         string        `yaml:"stt_static_text"`
	MembersFile           string        `yaml:"members_file"`
	CORSOrigin            string        `yaml:"cors_origin"`
	ShutdownTimeout       time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppEnv: "development",
		Kiosk: KioskConfig{
			BackendURL: "http://localhost:5000",
			MaxRetries: 3,
			BaseDelay:  time.Second,
			Audio: AudioConfig{
				Command:     "ffmpeg",
				InputFormat: "pulse",
				InputDevice: "default",
				SampleRate:  48000,
				Channels:    1,
			},
		},
		Server: ServerConfig{
			HTTPAddr:        ":5000",
			DBDriver:        "sqlite3",
			DBPath:          "./data/feedback.db",
			RedisAddr:       "localhost:6379",
			CacheTTL:        10 * time.Minute,
			GRPCPort:        50051,
			KafkaTopic:      "feedback.submitted",
			STTProvider:     "static",
			STTLanguage:     "ja-JP",
			STTStaticText:   "Thank you for the presentation. The demo was easy to follow.",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads the YAML file named by BOOTH_CONFIG_FILE, if any, on top of the
// defaults and then applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("BOOTH_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)

	k := &c.Kiosk
	k.BackendURL = getEnv("BACKEND_URL", k.BackendURL)
	k.MaxRetries = getEnvInt("FETCH_MAX_RETRIES", k.MaxRetries)
	k.BaseDelay = getEnvDuration("FETCH_BASE_DELAY", k.BaseDelay)
	k.Identity = getEnv("KIOSK_IDENTITY", k.Identity)
	k.MetricsAddr = getEnv("KIOSK_METRICS_ADDR", k.MetricsAddr)
	k.Audio.Command = getEnv("FFMPEG_COMMAND", k.Audio.Command)
	k.Audio.InputFormat = getEnv("AUDIO_INPUT_FORMAT", k.Audio.InputFormat)
	k.Audio.InputDevice = getEnv("AUDIO_INPUT_DEVICE", k.Audio.InputDevice)
	k.Audio.SampleRate = getEnvInt("AUDIO_SAMPLE_RATE", k.Audio.SampleRate)
	k.Audio.Channels = getEnvInt("AUDIO_CHANNELS", k.Audio.Channels)

	s := &c.Server
	s.HTTPAddr = getEnv("HTTP_ADDR", s.HTTPAddr)
	s.DBDriver = getEnv("DB_DRIVER", s.DBDriver)
	s.DBPath = getEnv("DB_PATH", s.DBPath)
	s.RedisAddr = getEnv("REDIS_ADDR", s.RedisAddr)
	s.CacheTTL = getEnvDuration("CACHE_TTL", s.CacheTTL)
	s.GRPCPort = getEnvInt("GRPC_PORT", s.GRPCPort)
	s.GRPCReflectionEnabled = getEnvBool("GRPC_REFLECTION_ENABLED", s.GRPCReflectionEnabled)
	s.KafkaEnabled = getEnvBool("KAFKA_ENABLED", s.KafkaEnabled)
	s.KafkaBrokers = getEnvList("KAFKA_BROKERS", s.KafkaBrokers)
	s.KafkaTopic = getEnv("KAFKA_TOPIC", s.KafkaTopic)
	s.STTProvider = getEnv("STT_PROVIDER", s.STTProvider)
	s.STTLanguage = getEnv("STT_LANGUAGE", s.STTLanguage)
	s.STTStaticText = getEnv("STT_STATIC_TEXT", s.STTStaticText)
	s.MembersFile = getEnv("MEMBERS_FILE", s.MembersFile)
	s.CORSOrigin = getEnv("CORS_ORIGIN", s.CORSOrigin)
	s.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
