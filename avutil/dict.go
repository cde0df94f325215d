//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/obinnaokechukwu/avbridge/internal/bindings"
)

// av_dict_set / av_dict_get flags.
const (
	DictMatchCase     int32 = 1
	DictIgnoreSuffix  int32 = 2
	DictDontOverwrite int32 = 16
	DictAppend        int32 = 32
	DictMultiKey      int32 = 64
)

// DictEntry is one key/value pair read from an AVDictionary.
type DictEntry struct {
	Key   string
	Value string
}

// DictSet sets a key-value pair. A nil *dict is allocated on first use.
func DictSet(dict *Dictionary, key, value string, flags int32) error {
	if avDictSet == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avDictSet(dict, key, value, flags), "av_dict_set")
}

// DictGet looks up the first entry for key. FFmpeg compares keys
// case-insensitively unless flags include DictMatchCase.
func DictGet(dict Dictionary, key string, flags int32) (string, bool) {
	if dict == nil || avDictGet == nil {
		return "", false
	}
	e := avDictGet(dict, key, nil, flags)
	if e == nil {
		return "", false
	}
	return dictEntry(e).Value, true
}

// DictEntries returns all entries in insertion order.
func DictEntries(dict Dictionary) []DictEntry {
	if dict == nil || avDictGet == nil {
		return nil
	}
	var result []DictEntry
	var prev unsafe.Pointer
	for {
		prev = avDictGet(dict, "", prev, DictIgnoreSuffix)
		if prev == nil {
			return result
		}
		result = append(result, dictEntry(prev))
	}
}

// DictCount returns the number of entries.
func DictCount(dict Dictionary) int {
	if dict == nil || avDictCount == nil {
		return 0
	}
	return int(avDictCount(dict))
}

// DictCopy copies all entries of src into *dst.
func DictCopy(dst *Dictionary, src Dictionary, flags int32) error {
	if avDictCopy == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avDictCopy(dst, src, flags), "av_dict_copy")
}

// DictFree frees a dictionary and sets *dict to nil.
func DictFree(dict *Dictionary) {
	if dict == nil || *dict == nil || avDictFree == nil {
		return
	}
	avDictFree(dict)
}

// AVDictionaryEntry { char *key; char *value; }
func dictEntry(e unsafe.Pointer) DictEntry {
	return DictEntry{
		Key:   GoString(*(*unsafe.Pointer)(e)),
		Value: GoString(*(*unsafe.Pointer)(unsafe.Add(e, 8))),
	}
}
