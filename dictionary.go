//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"sync"

	"github.com/obinnaokechukwu/avbridge/avutil"
)

// DictEntry is one key/value pair of a Dictionary.
type DictEntry = avutil.DictEntry

// Dictionary is an AVDictionary: an ordered string multimap used for
// codec, format and muxer options and for metadata. Keys match exactly.
type Dictionary struct{ resource }

type dictionaryCell struct {
	mu     sync.Mutex
	native avutil.Dictionary
}

// NewDictionary returns an empty dictionary.
func (b *Bridge) NewDictionary() (Dictionary, error) {
	if err := b.checkOpen(); err != nil {
		return Dictionary{}, err
	}
	return Dictionary{b.ref(b.dictionaries.Insert(&dictionaryCell{}))}, nil
}

// NewDictionaryFrom returns a dictionary holding m. Map order is not
// preserved.
func (b *Bridge) NewDictionaryFrom(m map[string]string) (Dictionary, error) {
	d, err := b.NewDictionary()
	if err != nil {
		return Dictionary{}, err
	}
	for k, v := range m {
		if err := d.Set(k, v); err != nil {
			_ = d.Destroy()
			return Dictionary{}, err
		}
	}
	return d, nil
}

func (d Dictionary) cell() (*dictionaryCell, error) { return resolve(d.resource, tableDictionary) }

// Valid reports whether the dictionary is still alive.
func (d Dictionary) Valid() bool { return contains(d.resource, tableDictionary) }

// Destroy frees the dictionary.
func (d Dictionary) Destroy() error {
	if d.b == nil {
		return ErrNilBridge
	}
	cell, err := d.b.dictionaries.Remove(d.h)
	if err != nil {
		return err
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	avutil.DictFree(&cell.native)
	return nil
}

// Set stores value under key, replacing the first existing entry of key.
func (d Dictionary) Set(key, value string) error {
	return d.set(key, value, avutil.DictMatchCase)
}

// Add appends another entry for key, keeping the existing ones.
func (d Dictionary) Add(key, value string) error {
	return d.set(key, value, avutil.DictMatchCase|avutil.DictMultiKey)
}

func (d Dictionary) set(key, value string, flags int32) error {
	cell, err := d.cell()
	if err != nil {
		return err
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return avutil.DictSet(&cell.native, key, value, flags)
}

// Get returns the first value stored under key.
func (d Dictionary) Get(key string) (string, bool) {
	cell, err := d.cell()
	if err != nil {
		d.logLookup("Dictionary.Get", err)
		return "", false
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return avutil.DictGet(cell.native, key, avutil.DictMatchCase)
}

// Entries returns every entry in insertion order.
func (d Dictionary) Entries() []DictEntry {
	cell, err := d.cell()
	if err != nil {
		d.logLookup("Dictionary.Entries", err)
		return nil
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return avutil.DictEntries(cell.native)
}

// Len returns the number of entries.
func (d Dictionary) Len() int {
	cell, err := d.cell()
	if err != nil {
		d.logLookup("Dictionary.Len", err)
		return 0
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return avutil.DictCount(cell.native)
}

// Copy returns an independent dictionary with the same entries.
func (d Dictionary) Copy() (Dictionary, error) {
	cell, err := d.cell()
	if err != nil {
		return Dictionary{}, err
	}
	out, err := d.b.NewDictionary()
	if err != nil {
		return Dictionary{}, err
	}
	dst, _ := out.cell()
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if err := avutil.DictCopy(&dst.native, cell.native, avutil.DictMultiKey); err != nil {
		_ = out.Destroy()
		return Dictionary{}, err
	}
	return out, nil
}

// withNative lends the native pointer to a call that may replace it, such
// as avcodec_open2 or avformat_write_header.
func (d *Dictionary) withNative(owner resource, fn func(native *avutil.Dictionary) error) error {
	if d == nil {
		return fn(nil)
	}
	if err := owner.sameBridge(d.resource); err != nil {
		return err
	}
	cell, err := d.cell()
	if err != nil {
		return err
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return fn(&cell.native)
}

// dictionaryOf returns an owned copy of a native dictionary.
func (b *Bridge) dictionaryOf(src avutil.Dictionary) (Dictionary, error) {
	d, err := b.NewDictionary()
	if err != nil {
		return Dictionary{}, err
	}
	if src == nil {
		return d, nil
	}
	cell, _ := d.cell()
	if err := avutil.DictCopy(&cell.native, src, avutil.DictMultiKey); err != nil {
		_ = d.Destroy()
		return Dictionary{}, err
	}
	return d, nil
}

// copyInto replaces *dst with a copy of the entries of d.
func (d Dictionary) copyInto(dst *avutil.Dictionary) error {
	cell, err := d.cell()
	if err != nil {
		return err
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	avutil.DictFree(dst)
	if cell.native == nil {
		return nil
	}
	return avutil.DictCopy(dst, cell.native, avutil.DictMultiKey)
}
