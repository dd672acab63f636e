package pool

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/apache/thrift/lib/go/thrift"
)

// IsConnectionError 通用的连接异常判断，具体服务可以在此基础上扩展
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if hasKind(err, KindConnection) {
		return true
	}

	var te thrift.TTransportException
	if errors.As(err, &te) {
		return true
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrSocketDisconnect) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne)
}

// hasKind 沿错误链查找指定分类的 *Error
func hasKind(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok && pe.Kind == kind {
			return true
		}
		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				if hasKind(e, kind) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}
