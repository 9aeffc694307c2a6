package elastic_search

import "go.uber.org/zap"

// ElasticLogger routes the elastic client's trace output through zap.
type ElasticLogger struct{}

func (l ElasticLogger) Printf(format string, v ...interface{}) {
	zap.S().Debugf(format, v...)
}
