package pool

import "context"

// Factory 客户端的创建、重连、关闭和连接异常判断，由具体业务实现
type Factory[C any] interface {
	// Create 创建一个新的客户端，可能阻塞在网络IO上
	Create(ctx context.Context) (C, error)
	// Reconnect 在原客户端对象上重建底层连接，失败即视为该客户端不可用
	Reconnect(ctx context.Context, client C) error
	// Close 释放客户端资源
	Close(client C) error
	// IsConnectionError 判断错误是否为可以通过重连恢复的连接异常
	IsConnectionError(err error) bool
}

// Validator 可选，实现后借出前会检查客户端是否仍然有效
type Validator[C any] interface {
	Validate(client C) bool
}

type Pool[C any] interface {
	Borrow(ctx context.Context) (C, error)
	Release(client C) error
	Run(ctx context.Context, do func(client C) error, allowRetry bool) error
	Reconnect(ctx context.Context, client C) error
	Close() error

	IsConnectionError(err error) bool
	Classify(err error) Kind
	GetIdleCount() int
	GetConnCount() int
	Stats() Stats
}

var _ Pool[*struct{}] = (*ClientPool[*struct{}])(nil)
