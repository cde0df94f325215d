//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/shim"
	"go.uber.org/atomic"
)

// NativeLogLevel converts a logger level into the matching AV_LOG_* value.
// Native verbosity rises with the logger level, so go-belt's Fatal (the
// most severe) maps to AV_LOG_PANIC.
func NativeLogLevel(l logger.Level) int32 {
	switch {
	case l == logger.LevelUndefined:
		return avutil.LogQuiet
	case l <= logger.LevelFatal:
		return avutil.LogPanic
	case l <= logger.LevelPanic:
		return avutil.LogFatal
	case l <= logger.LevelError:
		return avutil.LogError
	case l <= logger.LevelWarning:
		return avutil.LogWarning
	case l <= logger.LevelInfo:
		return avutil.LogInfo
	case l <= logger.LevelDebug:
		return avutil.LogDebug
	}
	return avutil.LogTrace
}

// LoggerLevelFromNative converts an AV_LOG_* value into a logger level.
// AV_LOG_VERBOSE is reported as Debug.
func LoggerLevelFromNative(level int32) logger.Level {
	switch {
	case level <= avutil.LogPanic:
		return logger.LevelFatal
	case level <= avutil.LogFatal:
		return logger.LevelPanic
	case level <= avutil.LogError:
		return logger.LevelError
	case level <= avutil.LogWarning:
		return logger.LevelWarning
	case level <= avutil.LogInfo:
		return logger.LevelInfo
	case level <= avutil.LogDebug:
		return logger.LevelDebug
	}
	return logger.LevelTrace
}

// av_log has a single process-wide callback, so only one bridge at a time
// receives native log lines: the last one created with ForwardNativeLogs.
var (
	logTarget       atomic.Pointer[Bridge]
	logCallbackOnce sync.Once
	logCallbackPtr  uintptr
)

func (b *Bridge) forwardNativeLogs() error {
	if err := shim.Load(); err != nil {
		return err
	}
	logCallbackOnce.Do(func() {
		logCallbackPtr = purego.NewCallback(nativeLogTrampoline)
	})
	logTarget.Store(b)
	return shim.SetLogCallback(logCallbackPtr)
}

func (b *Bridge) stopForwardingNativeLogs() {
	if !logTarget.CompareAndSwap(b, nil) {
		return
	}
	_ = shim.SetLogCallback(0)
}

// void (*)(void *avcl, int level, const char *msg)
func nativeLogTrampoline(_ purego.CDecl, _ unsafe.Pointer, level int32, msg *byte) {
	b := logTarget.Load()
	if b == nil {
		return
	}
	text := strings.TrimSpace(avutil.GoString(unsafe.Pointer(msg)))
	if text == "" {
		return
	}
	b.logger.Logf(LoggerLevelFromNative(level), "ffmpeg: %s", text)
}
