//go:build !ios && !android && (amd64 || arm64)

// Package platform knows how shared libraries are named on each OS.
package platform

import (
	"fmt"
	"runtime"
)

type naming struct {
	prefix    string
	extension string
	// versioned renders a library name carrying a major version.
	versioned func(prefix, name, ext string, version int) string
}

var namings = map[string]naming{
	"darwin":  {"lib", ".dylib", func(p, n, e string, v int) string { return fmt.Sprintf("%s%s.%d%s", p, n, v, e) }},
	"windows": {"", ".dll", func(p, n, e string, v int) string { return fmt.Sprintf("%s%s-%d%s", p, n, v, e) }},
}

var elf = naming{"lib", ".so", func(p, n, e string, v int) string { return fmt.Sprintf("%s%s%s.%d", p, n, e, v) }}

func current() naming {
	if n, ok := namings[runtime.GOOS]; ok {
		return n
	}
	return elf
}

// LibraryExtension is the shared library suffix on this OS.
func LibraryExtension() string { return current().extension }

// FormatLibraryName returns the file name of a shared library. A zero
// version yields the unversioned name:
//
//	linux:   avcodec, 60 -> libavcodec.so.60
//	darwin:  avcodec, 60 -> libavcodec.60.dylib
//	windows: avcodec, 60 -> avcodec-60.dll
func FormatLibraryName(name string, version int) string {
	n := current()
	if version <= 0 {
		return n.prefix + name + n.extension
	}
	return n.versioned(n.prefix, name, n.extension, version)
}

// CandidateNames lists the file names to try for a library, newest version
// first and the unversioned name last.
func CandidateNames(name string, versions []int) []string {
	names := make([]string, 0, len(versions)+1)
	for _, v := range versions {
		names = append(names, FormatLibraryName(name, v))
	}
	return append(names, FormatLibraryName(name, 0))
}
