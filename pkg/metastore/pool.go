package metastore

import (
	"context"
	"fmt"

	"github.com/XuKyle/metastore-client-pool/pkg/pool"
)

// ConnectHook 新建的客户端进入连接池前执行，例如设置用户组信息；返回错误则创建失败
type ConnectHook func(ctx context.Context, c *Client) error

type Option func(*clientFactory)

// WithConnectHook 每个客户端连接成功后执行hook
func WithConnectHook(hook ConnectHook) Option {
	return func(f *clientFactory) {
		f.onConnect = hook
	}
}

// Pool Hive Metastore 客户端连接池
//
// 关闭了连接池层面的连接异常重试，调用应通过 RetryingClient，由它重连和重试。
type Pool struct {
	*pool.ClientPool[*Client]
	conf Config
}

// NewPool 校验配置并创建连接池，客户端按需创建
func NewPool(conf Config, opts ...Option) (*Pool, error) {
	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	strategy, err := strategyFor(conf.Transport, conf.Protocol)
	if err != nil {
		return nil, err
	}

	factory := &clientFactory{conf: conf, strategy: strategy}
	for _, opt := range opts {
		opt(factory)
	}

	cp, err := pool.NewClientPool[*Client](factory, pool.ClientPoolConfig{
		Size:                   conf.PoolSize,
		BorrowTimeout:          conf.BorrowTimeout.Duration(),
		IdleTimeout:            conf.IdleTimeout.Duration(),
		RetryOnConnectionError: false,
	})
	if err != nil {
		return nil, fmt.Errorf("metastore: %w", err)
	}

	log.WithField("uris", conf.URIs).WithField("poolSize", conf.PoolSize).Info("Hive Metastore client pool created")
	return &Pool{ClientPool: cp, conf: conf}, nil
}

// Config 创建连接池时使用的配置
func (p *Pool) Config() Config {
	return p.conf
}

// clientFactory 为 *Client 实现 pool.Factory 和 pool.Validator
type clientFactory struct {
	conf      Config
	strategy  clientStrategy
	onConnect ConnectHook
}

func (f *clientFactory) Create(ctx context.Context) (*Client, error) {
	c, err := newClient(f.conf, f.strategy)
	if err == nil && f.onConnect != nil {
		if err = f.onConnect(ctx, c); err != nil {
			c.Close()
		}
	}
	if err != nil {
		return nil, translateCreateError(err)
	}
	log.WithField("addr", c.Addr()).Debug("connected to Hive Metastore")
	return c, nil
}

func (f *clientFactory) Reconnect(ctx context.Context, c *Client) error {
	log.WithField("addr", c.Addr()).Warn("Reconnecting to Hive Metastore")
	if err := c.Reconnect(); err != nil {
		return fmt.Errorf("failed to reconnect to Hive Metastore: %w", err)
	}
	return nil
}

func (f *clientFactory) Close(c *Client) error {
	log.WithField("addr", c.Addr()).Info("Closing Hive Metastore client")
	if err := c.Close(); err != nil {
		log.WithError(err).Warn("failed to close Hive Metastore client")
	}
	return nil
}

func (f *clientFactory) IsConnectionError(err error) bool {
	return IsConnectionError(err)
}

func (f *clientFactory) Validate(c *Client) bool {
	return c.IsOpen()
}
