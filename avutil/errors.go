//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"errors"
	"fmt"
	"syscall"
)

// AVERROR values. FFERRTAG codes are the negated little-endian tags.
const (
	AVERROR_EOF               int32 = -541478725
	AVERROR_EXIT              int32 = -1414092869
	AVERROR_EAGAIN            int32 = -int32(syscall.EAGAIN)
	AVERROR_EINVAL            int32 = -int32(syscall.EINVAL)
	AVERROR_ENOMEM            int32 = -int32(syscall.ENOMEM)
	AVERROR_EIO               int32 = -int32(syscall.EIO)
	AVERROR_ENOSYS            int32 = -int32(syscall.ENOSYS)
	AVERROR_BSF_NOT_FOUND     int32 = -1179861752
	AVERROR_DECODER_NOT_FOUND int32 = -1128613112
	AVERROR_DEMUXER_NOT_FOUND int32 = -1296385272
	AVERROR_ENCODER_NOT_FOUND int32 = -1129203192
	AVERROR_FILTER_NOT_FOUND  int32 = -1279870712
	AVERROR_MUXER_NOT_FOUND   int32 = -1481985528
	AVERROR_OPTION_NOT_FOUND  int32 = -1414549496
	AVERROR_STREAM_NOT_FOUND  int32 = -1381258232
	AVERROR_INVALIDDATA       int32 = -1094995529
	AVERROR_BUG               int32 = -558323010
	AVERROR_UNKNOWN           int32 = -1313558101
)

// Error is a failed native call.
type Error struct {
	Code    int32  // raw AVERROR code
	Message string // av_strerror text
	Op      string // native function that failed
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// NewError converts a native return code into an error. Non-negative codes
// are success and yield nil.
func NewError(code int32, op string) error {
	if code >= 0 {
		return nil
	}
	return &Error{
		Code:    code,
		Message: ErrorString(code),
		Op:      op,
	}
}

// IsEOF returns true if the error indicates end of file.
func IsEOF(err error) bool {
	return Code(err) == AVERROR_EOF
}

// IsAgain returns true if the error is EAGAIN, the pump "try again" signal.
func IsAgain(err error) bool {
	return Code(err) == AVERROR_EAGAIN
}

// IsInvalidData returns true if the error indicates invalid data.
func IsInvalidData(err error) bool {
	return Code(err) == AVERROR_INVALIDDATA
}

// IsExit returns true if a callback asked the library to abort.
func IsExit(err error) bool {
	return Code(err) == AVERROR_EXIT
}

// Code returns the FFmpeg error code from an error, or 0 if not an FFmpeg error.
func Code(err error) int32 {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code
	}
	return 0
}
