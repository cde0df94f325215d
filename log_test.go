//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"testing"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/stretchr/testify/assert"
)

func TestNativeLogLevelIsMonotonic(t *testing.T) {
	levels := []logger.Level{
		logger.LevelFatal,
		logger.LevelPanic,
		logger.LevelError,
		logger.LevelWarning,
		logger.LevelInfo,
		logger.LevelDebug,
		logger.LevelTrace,
	}
	prev := avutil.LogQuiet
	for _, l := range levels {
		native := NativeLogLevel(l)
		assert.Greater(t, native, prev, "level %s", l)
		assert.Equal(t, l, LoggerLevelFromNative(native), "level %s", l)
		prev = native
	}
	assert.Equal(t, avutil.LogPanic, NativeLogLevel(logger.LevelFatal))
	assert.Equal(t, avutil.LogFatal, NativeLogLevel(logger.LevelPanic))
	assert.Equal(t, avutil.LogQuiet, NativeLogLevel(logger.LevelUndefined))
}
