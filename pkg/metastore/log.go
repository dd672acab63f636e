package metastore

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger = logrus.WithField("component", "HiveClientPool")

// SetLogger 替换日志，nil 时恢复默认
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.WithField("component", "HiveClientPool")
	}
	log = l
}
