package pool

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger = logrus.WithField("component", "ClientPool")

// SetLogger 替换连接池使用的日志，nil 时恢复默认
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.WithField("component", "ClientPool")
	}
	log = l
}
