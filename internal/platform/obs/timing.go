package obs

import (
	"time"

	"go.uber.org/zap"
)

var logger = zap.NewNop()

// SetLogger installs the process logger used for op timing. Called once from
// the composition root before any timed operation runs.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// L returns the process logger.
func L() *zap.Logger {
	return logger
}

// Time measures one named operation. Use as:
//
//	defer obs.Time("cache.GetMany")(&err)
//
// so the deferred call observes the function's final error value.
func Time(name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			logger.Warn("op failed",
				zap.String("op", name),
				zap.Duration("dur", dur),
				zap.Error(*errp))
			return
		}
		logger.Debug("op done",
			zap.String("op", name),
			zap.Duration("dur", dur))
	}
}
