// Package report turns a final pricing result into the flat
// key-to-formatted-value mapping consumed by document generation.
// Keys are derived from human labels; the mapping is the only contract
// with downstream templates.
package report

import (
	"fmt"
	"strings"
)

// translit maps national characters to their report-safe replacements.
// German umlauts expand to digraphs, accented Latin letters lose the
// accent. Anything not covered here and not alphanumeric becomes an
// underscore.
var translit = map[rune]string{
	'ä': "AE", 'Ä': "AE",
	'ö': "OE", 'Ö': "OE",
	'ü': "UE", 'Ü': "UE",
	'ß': "SS",
	'á': "A", 'à': "A", 'â': "A", 'Á': "A", 'À': "A", 'Â': "A",
	'é': "E", 'è': "E", 'ê': "E", 'ë': "E", 'É': "E", 'È': "E", 'Ê': "E", 'Ë': "E",
	'í': "I", 'ì': "I", 'î': "I", 'Í': "I", 'Ì': "I", 'Î': "I",
	'ó': "O", 'ò': "O", 'ô': "O", 'Ó': "O", 'Ò': "O", 'Ô': "O",
	'ú': "U", 'ù': "U", 'û': "U", 'Ú': "U", 'Ù': "U", 'Û': "U",
	'ç': "C", 'Ç': "C",
	'ñ': "N", 'Ñ': "N",
}

// KeyFor derives a report key from a human label: national characters
// are transliterated, letters upper-cased, and every other run of
// characters collapses to a single underscore. Leading and trailing
// underscores are dropped, so a label of only punctuation yields "".
func KeyFor(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	pendingSep := false
	for _, r := range label {
		if repl, ok := translit[r]; ok {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteString(repl)
			continue
		}
		switch {
		case r >= 'a' && r <= 'z':
			r -= 'a' - 'A'
			fallthrough
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// KeySet hands out report keys and resolves collisions with numeric
// suffixes: the second label mapping to FOO becomes FOO_2, the third
// FOO_3, and so on. Not safe for concurrent use.
type KeySet struct {
	// used tracks, per base key, the highest suffix handed out, and
	// marks every key (suffixed or not) that is already taken.
	used map[string]int
}

// NewKeySet returns an empty key set.
func NewKeySet() *KeySet {
	return &KeySet{used: make(map[string]int)}
}

// Add derives the key for label and reserves it. A label that
// sanitizes to nothing gets the base key FIELD.
func (ks *KeySet) Add(label string) string {
	base := KeyFor(label)
	if base == "" {
		base = "FIELD"
	}
	if ks.used[base] == 0 {
		ks.used[base] = 1
		return base
	}
	for i := ks.used[base] + 1; ; i++ {
		key := fmt.Sprintf("%s_%d", base, i)
		if ks.used[key] == 0 {
			ks.used[base] = i
			ks.used[key] = 1
			return key
		}
	}
}
