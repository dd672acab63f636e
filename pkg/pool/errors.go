package pool

import (
	"errors"
	"fmt"
)

//error
var (
	ErrOverMax          = errors.New("ClientPool 连接超过设置的最大连接数，等待超时")
	ErrInvalidConn      = errors.New("ClientPool 归还的客户端不是从连接池借出的")
	ErrPoolClosed       = errors.New("ClientPool 连接池已经被关闭")
	ErrSocketDisconnect = errors.New("ClientPool 客户端socket连接已断开")
)

// Kind 错误分类
type Kind int

const (
	// KindOperation 业务操作本身的错误，原样返回，客户端归还连接池
	KindOperation Kind = iota
	// KindConnection 连接异常，可以通过重连恢复
	KindConnection
	// KindConstruction 创建客户端失败
	KindConstruction
	// KindReconnect 重连失败，客户端被丢弃
	KindReconnect
)

func (k Kind) String() string {
	switch k {
	case KindOperation:
		return "operation"
	case KindConnection:
		return "connection"
	case KindConstruction:
		return "construction"
	case KindReconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error 结构化错误：分类 + 描述 + 原始错误
//
// 经过多层包装后原始错误类型可能丢失，分类器依赖Kind和Message判断，而不是具体类型。
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConnectionError 构造一个连接异常
func NewConnectionError(message string, err error) *Error {
	return &Error{Kind: KindConnection, Message: message, Err: err}
}

func constructionError(err error) *Error {
	return &Error{Kind: KindConstruction, Op: "create", Message: "failed to create client", Err: err}
}

// ReconnectError 重连失败。同时保留重连错误和触发重连的原始错误，
// errors.Is/As 对两者都生效。
type ReconnectError struct {
	Err   error
	Cause error
}

func (e *ReconnectError) Error() string {
	return fmt.Sprintf("reconnect: failed to reconnect client: %v (after: %v)", e.Err, e.Cause)
}

func (e *ReconnectError) Unwrap() []error {
	return []error{e.Err, e.Cause}
}

// Classify 返回错误的分类，未知错误按业务错误处理
// 只使用通用的连接异常判断，需要业务判断时用 ClientPool.Classify
func Classify(err error) Kind {
	var re *ReconnectError
	if errors.As(err, &re) {
		return KindReconnect
	}
	if hasKind(err, KindConstruction) {
		return KindConstruction
	}
	if IsConnectionError(err) {
		return KindConnection
	}
	return KindOperation
}

// IsConstructionError 判断是否为创建客户端失败
func IsConstructionError(err error) bool {
	return hasKind(err, KindConstruction)
}

// IsReconnectError 判断是否为重连失败
func IsReconnectError(err error) bool {
	var re *ReconnectError
	return errors.As(err, &re)
}
