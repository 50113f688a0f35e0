package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultServerConfigPath = "./server-config.json"
	DefaultHostsPath        = "./hosts.json"

	MinPort = 1025
	MaxPort = 65535
)

// ErrInvalid 配置校验失败
var ErrInvalid = errors.New("invalid config")

// Config is the server launcher configuration. Port, LogFile and MaxClients
// are required; the remaining keys switch on optional listeners.
type Config struct {
	Port         int    `json:"port"`
	LogFile      string `json:"logFile"`
	MaxClients   int    `json:"maxClients"`
	WSAddr       string `json:"wsAddr,omitempty"`
	MetricsAddr  string `json:"metricsAddr,omitempty"`
	MaxFrameSize int    `json:"maxFrameSize,omitempty"`
	LogLevel     string `json:"logLevel,omitempty"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

// Load 读取 JSON 配置文件，应用环境变量覆盖后校验
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data, applies CHAT_* environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvInt("CHAT_TCP_PORT", c.Port)
	c.MaxClients = getEnvInt("CHAT_MAX_CLIENTS", c.MaxClients)
	c.LogFile = getEnv("CHAT_LOG_FILE", c.LogFile)
	c.WSAddr = getEnv("CHAT_WS_ADDR", c.WSAddr)
	c.MetricsAddr = getEnv("CHAT_METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("CHAT_LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	if c.Port < MinPort || c.Port > MaxPort {
		return fmt.Errorf("%w: port %d outside [%d, %d]", ErrInvalid, c.Port, MinPort, MaxPort)
	}
	if strings.TrimSpace(c.LogFile) == "" {
		return fmt.Errorf("%w: logFile is required", ErrInvalid)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("%w: maxClients must be positive, got %d", ErrInvalid, c.MaxClients)
	}
	if c.MaxFrameSize < 0 {
		return fmt.Errorf("%w: maxFrameSize must not be negative", ErrInvalid)
	}
	return nil
}

// TCPAddr 监听地址，绑定所有网卡
func (c *Config) TCPAddr() string { return ":" + strconv.Itoa(c.Port) }
