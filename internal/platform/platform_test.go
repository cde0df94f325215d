//go:build !ios && !android && (amd64 || arm64)

package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLibraryName(t *testing.T) {
	switch runtime.GOOS {
	case "darwin":
		assert.Equal(t, "libavcodec.60.dylib", FormatLibraryName("avcodec", 60))
		assert.Equal(t, "libavcodec.dylib", FormatLibraryName("avcodec", 0))
		assert.Equal(t, ".dylib", LibraryExtension())
	case "windows":
		assert.Equal(t, "avcodec-60.dll", FormatLibraryName("avcodec", 60))
		assert.Equal(t, "avcodec.dll", FormatLibraryName("avcodec", 0))
	default:
		assert.Equal(t, "libavcodec.so.60", FormatLibraryName("avcodec", 60))
		assert.Equal(t, "libavcodec.so", FormatLibraryName("avcodec", 0))
		assert.Equal(t, ".so", LibraryExtension())
	}
}

func TestCandidateNames(t *testing.T) {
	names := CandidateNames("swscale", []int{8, 7})
	assert.Len(t, names, 3)
	assert.Equal(t, FormatLibraryName("swscale", 8), names[0])
	assert.Equal(t, FormatLibraryName("swscale", 0), names[2])

	assert.Equal(t, []string{FormatLibraryName("x", 0)}, CandidateNames("x", nil))
}
