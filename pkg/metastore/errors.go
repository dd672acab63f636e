package metastore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/XuKyle/metastore-client-pool/pkg/pool"
)

const (
	// 原始异常类型丢失后，metastore 在 MetaException 中用这段文本表示transport断开
	transportFailureMarker = "Got exception: org.apache.thrift.transport.TTransportException"
	// 嵌入式Derby metastore已被其他进程占用
	embeddedBusyMarker = "Another instance of Derby may have already booted"
)

// ErrEmbeddedMetastoreBusy 嵌入式metastore同时只支持一个客户端，创建失败时返回
var ErrEmbeddedMetastoreBusy = errors.New("failed to start an embedded metastore because embedded " +
	"Derby supports only one client at a time; use a metastore that supports multiple clients")

// MetaException metastore调用返回的通用异常
//
// 生成的stub异常应转换成它再返回给调用方，例如
//
//	if me, ok := err.(*hive_metastore.MetaException); ok {
//		return &metastore.MetaException{Message: me.GetMessage()}
//	}
//
// IsConnectionError 只看错误文本，未转换的异常同样能识别为连接异常。
type MetaException struct {
	Message string
}

func (e *MetaException) Error() string {
	return "MetaException: " + e.Message
}

// IsConnectionError 在 pool.IsConnectionError 基础上识别metastore自己的transport异常文本，
// 这类异常通常包在 MetaException 或其他通用错误里，只能按文本判断
func IsConnectionError(err error) bool {
	if pool.IsConnectionError(err) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), transportFailureMarker)
}

func translateCreateError(err error) error {
	if strings.Contains(err.Error(), embeddedBusyMarker) {
		return fmt.Errorf("%w: %w", ErrEmbeddedMetastoreBusy, err)
	}
	return fmt.Errorf("failed to connect to Hive Metastore: %w", err)
}
