//go:build !ios && !android && (amd64 || arm64)

package bindings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLibrarySearchPaths(t *testing.T) {
	require.NotEmpty(t, LibrarySearchPaths())
}

func TestSearchPathOrder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLibraryPath, dir)

	paths := LibrarySearchPaths()
	require.Contains(t, paths, dir)

	AddSearchPath("/opt/avbridge-test")
	paths = LibrarySearchPaths()
	require.Equal(t, "/opt/avbridge-test", paths[0], "explicit paths come first")
}

func TestFindLibraryMissing(t *testing.T) {
	_, err := FindLibrary(Library{Name: "definitely-not-a-library", Versions: []int{1}})
	require.ErrorIs(t, err, ErrLibraryNotFound)
}

func TestLoadFFmpeg(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FFmpeg load test in short mode")
	}

	if err := Load(); err != nil {
		t.Skipf("FFmpeg not available: %v", err)
	}
	require.True(t, IsLoaded())

	ver := AVUtilVersion()
	require.NotZero(t, ver)
	t.Logf("avutil %d.%d.%d", ver>>16, (ver>>8)&0xFF, ver&0xFF)

	if _, err := LoadOptional(SWScale); err != nil {
		t.Logf("swscale not available: %v", err)
	}
}
