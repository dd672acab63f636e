package metastore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/XuKyle/metastore-client-pool/pkg/pool"
)

// RetryingClient 在借出的客户端上执行调用，遇到连接异常时指数退避、
// 通过连接池重连客户端后重试；其他错误第一次就返回。
// 重连失败返回 *pool.ReconnectError，客户端被连接池丢弃。
type RetryingClient struct {
	pool     *Pool
	retries  uint64
	interval time.Duration
}

// NewRetryingClient 使用连接池配置中的 RetryAttempts 和 RetryInterval
func NewRetryingClient(p *Pool) *RetryingClient {
	conf := p.Config()
	return &RetryingClient{
		pool:     p,
		retries:  uint64(conf.RetryAttempts),
		interval: conf.RetryInterval.Duration(),
	}
}

// Do 借出一个客户端执行do
func (r *RetryingClient) Do(ctx context.Context, do func(c *Client) error) error {
	return r.pool.Run(ctx, func(c *Client) error {
		var lastErr error
		attempt := 0
		op := func() error {
			attempt++
			if attempt > 1 {
				log.WithField("attempt", attempt-1).WithField("addr", c.Addr()).
					Warn("retrying Hive Metastore call after connection failure")
				if err := r.pool.Reconnect(ctx, c); err != nil {
					return backoff.Permanent(&pool.ReconnectError{Err: err, Cause: lastErr})
				}
			}

			err := do(c)
			lastErr = err
			if err != nil && !r.pool.IsConnectionError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return backoff.Retry(op, r.backOff(ctx))
	}, true)
}

func (r *RetryingClient) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, r.retries), ctx)
}
