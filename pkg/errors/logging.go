package errors

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogError logs err with its code under the "code" field, the same key the
// failure events carry. Client faults are logged at warn level, everything
// else at error. Validation details are attached when present.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	code := CodeOf(err)
	all := append([]zap.Field{zap.Error(err), zap.String("code", code)}, fields...)

	var appErr *AppError
	if As(err, &appErr) && len(appErr.Details()) > 0 {
		all = append(all, zap.Any("details", appErr.Details()))
	}

	if ce := logger.Check(levelFor(code), msg); ce != nil {
		ce.Write(all...)
	}
}

func levelFor(code string) zapcore.Level {
	switch code {
	case ErrInvalidArgument, ErrUnauthenticated, ErrUnauthorized, ErrNotFound, ErrResourceExhausted:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}
