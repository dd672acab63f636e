package pool

import (
	"fmt"
	"time"
)

const (
	DEFAULT_MAX_CONN       = 100
	DEFAULT_BORROW_TIMEOUT = time.Second * 5
	maxInitConnCount       = 50
	checkInterval          = time.Second * 120 //清除超时连接间隔
)

// 连接池配置
type ClientPoolConfig struct {
	// 最大连接数，即池容量
	Size int
	// 获取客户端的最长等待时间，0 表示只受ctx控制
	BorrowTimeout time.Duration
	// 空闲客户端超时时间，超时主动关闭，0 表示不清理
	IdleTimeout time.Duration
	// 创建连接池时预先建立的客户端数
	InitialConns int
	// 遇到连接异常时，是否由连接池重连后重试一次
	RetryOnConnectionError bool
}

// DefaultClientPoolConfig 通用连接池默认配置，默认开启连接异常重试
func DefaultClientPoolConfig() ClientPoolConfig {
	return ClientPoolConfig{
		Size:                   DEFAULT_MAX_CONN,
		BorrowTimeout:          DEFAULT_BORROW_TIMEOUT,
		RetryOnConnectionError: true,
	}
}

func checkClientPoolConfig(config *ClientPoolConfig) error {
	if config.Size <= 0 {
		return fmt.Errorf("ClientPool 容量必须为正数: %d", config.Size)
	}
	if config.BorrowTimeout < 0 {
		config.BorrowTimeout = 0
	}
	if config.IdleTimeout < 0 {
		config.IdleTimeout = 0
	}
	if config.InitialConns > config.Size {
		config.InitialConns = config.Size
	}
	if config.InitialConns > maxInitConnCount {
		config.InitialConns = maxInitConnCount
	}
	return nil
}
