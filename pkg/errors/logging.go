package errors

import (
	"go.uber.org/zap"
)

// LogError writes err at error level. An AppError in the chain adds its code;
// upstream failures are logged at warn since the caller cannot fix them.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil || logger == nil {
		return
	}

	code := CodeOf(err)
	all := append([]zap.Field{zap.Error(err), zap.String("error_code", code)}, fields...)

	if code == ErrUpstream {
		logger.Warn(msg, all...)
		return
	}
	logger.Error(msg, all...)
}
