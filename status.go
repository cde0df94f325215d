//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"github.com/obinnaokechukwu/avbridge/avutil"
)

// Status is the outcome of one pump step.
type Status int

const (
	// StatusProduced means the call did its work: a packet or frame was
	// read, accepted or returned.
	StatusProduced Status = iota
	// StatusNeedsMoreInput means nothing can be returned until more input
	// is sent (EAGAIN on a receive or read).
	StatusNeedsMoreInput
	// StatusNeedsDrain means the input was refused until pending output is
	// received (EAGAIN on a send). Receive, then send the same input again.
	StatusNeedsDrain
	// StatusEndOfStream means the stream is fully drained.
	StatusEndOfStream
	// StatusError accompanies a non-nil error.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusProduced:
		return "produced"
	case StatusNeedsMoreInput:
		return "needs-more-input"
	case StatusNeedsDrain:
		return "needs-drain"
	case StatusEndOfStream:
		return "end-of-stream"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Produced reports whether the step yielded its result.
func (s Status) Produced() bool { return s == StatusProduced }

// receiveStatus maps the result of a receive-side call (av_read_frame,
// avcodec_receive_*, av_buffersink_get_frame).
func receiveStatus(err error) (Status, error) {
	switch {
	case err == nil:
		return StatusProduced, nil
	case avutil.IsAgain(err):
		return StatusNeedsMoreInput, nil
	case avutil.IsEOF(err):
		return StatusEndOfStream, nil
	}
	return StatusError, err
}

// sendStatus maps the result of a send-side call (avcodec_send_*).
func sendStatus(err error) (Status, error) {
	switch {
	case err == nil:
		return StatusProduced, nil
	case avutil.IsAgain(err):
		return StatusNeedsDrain, nil
	case avutil.IsEOF(err):
		return StatusEndOfStream, nil
	}
	return StatusError, err
}
