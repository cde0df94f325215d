//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"errors"
	"fmt"

	"github.com/obinnaokechukwu/avbridge/avutil"
	"github.com/obinnaokechukwu/avbridge/internal/handles"
)

var (
	// ErrNilBridge is returned by resources that were never created by a
	// Bridge (the zero value).
	ErrNilBridge = errors.New("avbridge: resource has no bridge")

	// ErrForeignHandle is returned when a resource created by one Bridge is
	// passed to a resource of another.
	ErrForeignHandle = errors.New("avbridge: resource belongs to another bridge")

	// ErrBridgeClosed is returned for new resources after Close.
	ErrBridgeClosed = errors.New("avbridge: bridge is closed")

	// ErrOutOfMemory is returned when a native allocation fails.
	ErrOutOfMemory = errors.New("avbridge: out of memory")

	// ErrBorrowed is returned by Destroy on a view owned by another
	// resource, such as a stream's codec parameters.
	ErrBorrowed = errors.New("avbridge: borrowed view cannot be destroyed")

	// ErrInvalidIOOptions is returned by NewIOContext for an empty or
	// conflicting set of options.
	ErrInvalidIOOptions = errors.New("avbridge: invalid I/O options")
	// ErrSeekNotSupported may be returned by an OnSeek callback; FFmpeg
	// sees AVERROR(ENOSYS).
	ErrSeekNotSupported = errors.New("avbridge: seek not supported")
	// ErrIOTimeout is recorded when a callback outlives IOOptions.CallTimeout.
	ErrIOTimeout = errors.New("avbridge: I/O callback timed out")

	// ErrNotInput is returned by demuxer operations on a muxer.
	ErrNotInput = errors.New("avbridge: not a demuxer context")
	// ErrNotOutput is returned by muxer operations on a demuxer.
	ErrNotOutput = errors.New("avbridge: not a muxer context")
	// ErrHeaderNotWritten is returned by WriteFrame before WriteHeader.
	ErrHeaderNotWritten = errors.New("avbridge: header not written")
	// ErrHeaderAlreadyWritten is returned by a second WriteHeader and by
	// changes that must happen before the header.
	ErrHeaderAlreadyWritten = errors.New("avbridge: header already written")
	// ErrTrailerWritten is returned by writes after WriteTrailer.
	ErrTrailerWritten = errors.New("avbridge: trailer already written")

	// ErrGraphConfigured is returned when a configured graph is changed.
	ErrGraphConfigured = errors.New("avbridge: filter graph already configured")
	// ErrGraphNotConfigured is returned by PushFrame and PullFrame before
	// Configure.
	ErrGraphNotConfigured = errors.New("avbridge: filter graph not configured")
	// ErrFilterNotFound is returned for an unknown filter name.
	ErrFilterNotFound = errors.New("avbridge: filter not found")

	// ErrDecoderNotFound is returned when no decoder matches.
	ErrDecoderNotFound = errors.New("avbridge: decoder not found")
	// ErrEncoderNotFound is returned when no encoder matches.
	ErrEncoderNotFound = errors.New("avbridge: encoder not found")
	// ErrFormatNotFound is returned when no demuxer or muxer matches.
	ErrFormatNotFound = errors.New("avbridge: format not found")

	// ErrCodecNotOpen is returned by pump calls on a context that was
	// never opened.
	ErrCodecNotOpen = errors.New("avbridge: codec context not open")
	// ErrCodecAlreadyOpen is returned by setup that must happen before Open.
	ErrCodecAlreadyOpen = errors.New("avbridge: codec context already open")
	// ErrHWDeviceTypeNotFound is returned for an unknown or unset hardware
	// device type.
	ErrHWDeviceTypeNotFound = errors.New("avbridge: hardware device type not found")
)

// Re-exported so callers can match handle lookups without importing an
// internal package.
var (
	ErrStaleHandle   = handles.ErrStale
	ErrInvalidHandle = handles.ErrInvalid
)

// Native error codes, for matching with ErrorCode.
const (
	AVERROR_EOF    = avutil.AVERROR_EOF
	AVERROR_EXIT   = avutil.AVERROR_EXIT
	AVERROR_EAGAIN = avutil.AVERROR_EAGAIN
	AVERROR_EINVAL = avutil.AVERROR_EINVAL
	AVERROR_EIO    = avutil.AVERROR_EIO
	AVERROR_ENOSYS = avutil.AVERROR_ENOSYS
)

func notFound(sentinel error, what any) error {
	return fmt.Errorf("%w: %v", sentinel, what)
}
