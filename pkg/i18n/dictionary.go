// Package i18n supplies display strings for translation keys. Keys are
// dotted paths into a nested YAML document.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed en.yaml
var defaultEnglish []byte

// Dictionary maps dotted keys to strings. The zero value is empty and usable.
type Dictionary struct {
	entries map[string]string
}

// Default returns the built-in English dictionary
func Default() *Dictionary {
	d, err := Parse(defaultEnglish)
	if err != nil {
		// The embedded file is part of the build
		panic(fmt.Sprintf("i18n: embedded dictionary: %v", err))
	}
	return d
}

// Parse reads a nested YAML document
func Parse(data []byte) (*Dictionary, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	d := &Dictionary{entries: make(map[string]string)}
	flatten("", doc, d.entries)
	return d, nil
}

// Load reads the dictionary at path on top of the built-in English strings.
// An empty path returns the defaults.
func Load(path string) (*Dictionary, error) {
	d := Default()
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	overlay, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.Merge(overlay)
	return d, nil
}

// Merge copies every entry of other into d
func (d *Dictionary) Merge(other *Dictionary) {
	if other == nil {
		return
	}
	if d.entries == nil {
		d.entries = make(map[string]string, len(other.entries))
	}
	for k, v := range other.entries {
		d.entries[k] = v
	}
}

// T returns the string for key. Missing keys yield fallback, or the key
// itself when fallback is empty.
func (d *Dictionary) T(key, fallback string) string {
	if d != nil {
		if v, ok := d.entries[key]; ok {
			return v
		}
	}
	if fallback != "" {
		return fallback
	}
	return key
}

// Has reports whether key is defined
func (d *Dictionary) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[key]
	return ok
}

// Keys returns every defined key, sorted
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flatten(prefix string, v interface{}, out map[string]string) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case nil:
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(val)
		}
	}
}
