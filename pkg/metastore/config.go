package metastore

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// 默认配置
const (
	DefaultPoolSize       = 1
	DefaultConnectTimeout = 10 * time.Second
	DefaultSocketTimeout  = 600 * time.Second
	DefaultBorrowTimeout  = 30 * time.Second
	DefaultRetryAttempts  = 1
	DefaultRetryInterval  = time.Second

	TransportBuffered = "buffered"
	TransportFramed   = "framed"
	ProtocolBinary    = "binary"
	ProtocolCompact   = "compact"
)

// Duration 配置文件中的时长，接受 "5s"、"250ms" 这样的字符串，也接受纳秒整数
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("metastore: invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// Config Hive Metastore 连接池配置
type Config struct {
	// 形如 "thrift://hms:9083"，连接时按顺序尝试，第一个能连上的生效
	URIs     []string `toml:"uris" yaml:"uris"`
	PoolSize int      `toml:"pool_size" yaml:"poolSize"`
	// 建立socket的超时
	ConnectTimeout Duration `toml:"connect_timeout" yaml:"connectTimeout"`
	// socket每次读写的超时
	SocketTimeout Duration `toml:"socket_timeout" yaml:"socketTimeout"`
	// 等待空闲客户端的时间，0表示一直等到ctx结束
	BorrowTimeout Duration `toml:"borrow_timeout" yaml:"borrowTimeout"`
	// 空闲超过该时间的客户端被关闭，0表示不清理
	IdleTimeout Duration `toml:"idle_timeout" yaml:"idleTimeout"`
	// buffered 或 framed
	Transport string `toml:"transport" yaml:"transport"`
	// binary 或 compact
	Protocol string `toml:"protocol" yaml:"protocol"`
	// RetryingClient 遇到连接异常时的重试次数
	RetryAttempts int `toml:"retry_attempts" yaml:"retryAttempts"`
	// 重试的初始退避间隔
	RetryInterval Duration `toml:"retry_interval" yaml:"retryInterval"`
}

// DefaultConfig 默认配置，不包含URIs
func DefaultConfig() Config {
	return Config{
		PoolSize:       DefaultPoolSize,
		ConnectTimeout: Duration(DefaultConnectTimeout),
		SocketTimeout:  Duration(DefaultSocketTimeout),
		BorrowTimeout:  Duration(DefaultBorrowTimeout),
		Transport:      TransportBuffered,
		Protocol:       ProtocolBinary,
		RetryAttempts:  DefaultRetryAttempts,
		RetryInterval:  Duration(DefaultRetryInterval),
	}
}

// Validate 检查必填项和取值范围
func (c Config) Validate() error {
	if len(c.URIs) == 0 {
		return errors.New("metastore: at least one uri is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("metastore: pool size must be positive, got %d", c.PoolSize)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("metastore: retry attempts must not be negative, got %d", c.RetryAttempts)
	}
	if _, err := strategyFor(c.Transport, c.Protocol); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = Duration(DefaultConnectTimeout)
	}
	if c.Transport == "" {
		c.Transport = TransportBuffered
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolBinary
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = Duration(DefaultRetryInterval)
	}
}
