// Package tags assigns a stable visual kind to free-text event tags.
package tags

import (
	"strings"
	"unicode/utf16"
)

// Kind is the semantic group of a tag.
type Kind string

const (
	KindFood    Kind = "food"
	KindParty   Kind = "party"
	KindChill   Kind = "chill"
	KindFree    Kind = "free"
	KindPaid    Kind = "paid"
	KindPalette Kind = "palette"
)

// PaletteSize is the number of fallback colours for unknown tags.
const PaletteSize = 10

type keyword struct {
	word string
	kind Kind
}

// keywords is scanned in order for substring matches, so earlier groups win
// when a tag contains words from several ("free pizza" is food).
var keywords = []keyword{
	{"pizza", KindFood}, {"food", KindFood}, {"cake", KindFood}, {"donut", KindFood},
	{"donuts", KindFood}, {"buffet", KindFood}, {"snacks", KindFood},

	{"party", KindParty}, {"alcohol", KindParty}, {"wine", KindParty}, {"beer", KindParty},
	{"pub", KindParty}, {"18+", KindParty}, {"nightlife", KindParty},

	{"sober", KindChill}, {"coffee", KindChill}, {"tea", KindChill}, {"study", KindChill},
	{"chill", KindChill}, {"quiet", KindChill},

	{"free", KindFree},

	{"ticket", KindPaid}, {"£", KindPaid}, {"paid", KindPaid}, {"ticketed", KindPaid},
}

var exact = func() map[string]Kind {
	m := make(map[string]Kind, len(keywords))
	for _, k := range keywords {
		m[k.word] = k.kind
	}
	return m
}()

// Style is the classification of one tag. PaletteIndex is only meaningful
// for KindPalette.
type Style struct {
	Tag          string `json:"tag"`
	Kind         Kind   `json:"kind"`
	PaletteIndex int    `json:"palette_index,omitempty"`
}

// Classify returns the style for tag. Matching is case-insensitive and
// ignores surrounding whitespace. Unknown tags get a palette slot derived
// from a hash of the normalized tag, so the same tag always looks the same.
func Classify(tag string) Style {
	norm := strings.ToLower(strings.TrimSpace(tag))

	if k, ok := exact[norm]; ok {
		return Style{Tag: tag, Kind: k}
	}
	for _, k := range keywords {
		if strings.Contains(norm, k.word) {
			return Style{Tag: tag, Kind: k.kind}
		}
	}
	return Style{Tag: tag, Kind: KindPalette, PaletteIndex: int(hash(norm) % PaletteSize)}
}

// ClassifyAll classifies every tag, preserving order.
func ClassifyAll(tags []string) []Style {
	if len(tags) == 0 {
		return nil
	}
	out := make([]Style, len(tags))
	for i, t := range tags {
		out[i] = Classify(t)
	}
	return out
}

// hash is the 31-multiplier string hash over UTF-16 code units, wrapped to
// int32 and made non-negative.
func hash(s string) uint32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(u)
	}
	if h < 0 {
		// Negating MinInt32 overflows back to itself; widen first.
		return uint32(-int64(h))
	}
	return uint32(h)
}
