// Package config 从TOML/YAML文件和环境变量加载连接池配置
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/XuKyle/metastore-client-pool/pkg/metastore"
)

// 覆盖文件配置的环境变量
const (
	EnvURIs      = "METASTORE_URIS"
	EnvPoolSize  = "METASTORE_POOL_SIZE"
	EnvTransport = "METASTORE_TRANSPORT"
	EnvProtocol  = "METASTORE_PROTOCOL"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// Config 顶层配置
type Config struct {
	Metastore metastore.Config `toml:"metastore" yaml:"metastore"`
	Log       LogConfig        `toml:"log" yaml:"log"`
}

// LogConfig logrus输出配置
type LogConfig struct {
	// logrus的级别名：debug、info、warn、error
	Level string `toml:"level" yaml:"level"`
	// text 或 json
	Format string `toml:"format" yaml:"format"`
}

// Default 默认配置，不包含metastore URIs
func Default() *Config {
	return &Config{
		Metastore: metastore.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load 在默认配置上读取配置文件，格式由扩展名决定
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv 加载存在的.env文件，再用环境变量覆盖配置
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvURIs); v != "" {
		c.Metastore.URIs = splitList(v)
	}
	if v := os.Getenv(EnvPoolSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPoolSize, err)
		}
		c.Metastore.PoolSize = n
	}
	if v := os.Getenv(EnvTransport); v != "" {
		c.Metastore.Transport = v
	}
	if v := os.Getenv(EnvProtocol); v != "" {
		c.Metastore.Protocol = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := c.Metastore.Validate(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}

// Apply 设置logrus标准logger
func (l LogConfig) Apply() error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if l.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
