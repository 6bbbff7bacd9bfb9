package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// translit maps Cyrillic letters to their Latin search equivalents.
// The table covers the Ukrainian alphabet plus the Russian-only letters that
// show up in imported titles. It is intentionally lossy: the output only has
// to be stable and typeable on a Latin keyboard, not reversible.
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g",
	'д': "d", 'е': "e", 'є': "ie", 'ж': "zh", 'з': "z",
	'и': "y", 'і': "i", 'ї': "i", 'й': "i", 'к': "k",
	'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p",
	'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f",
	'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ь': "", 'ю': "iu", 'я': "ia",
	// Russian-only letters.
	'э': "e", 'ы': "y", 'ё': "e", 'ъ': "",
}

// NormalizeSearch derives the search string stored in the shadow full-text
// index: lowercase, Cyrillic transliterated to Latin, Latin diacritics
// folded away, and everything that is not a letter or digit collapsed to
// single spaces. The value is recomputed on every upsert and never trusted
// from the remote source.
func NormalizeSearch(s string) string {
	s = strings.ToLower(s)

	// Transliterate before NFD folding: NFD decomposes й and ё into base
	// letter plus combining mark, which would dodge the table.
	var lat strings.Builder
	lat.Grow(len(s))
	for _, r := range s {
		if repl, ok := translit[r]; ok {
			lat.WriteString(repl)
		} else {
			lat.WriteRune(r)
		}
	}

	var b strings.Builder
	b.Grow(lat.Len())
	for _, r := range norm.NFD.String(lat.String()) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark from NFD decomposition: drop it.
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// SearchVariations expands a raw user query into the variants matched
// against the full-text index: the query as typed and its normalized form,
// so Cyrillic-titled content is found from either script.
func SearchVariations(query string) []string {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}

	variations := []string{query}
	if n := NormalizeSearch(query); n != "" && n != query {
		variations = append(variations, n)
	}
	return variations
}

// SortKey derives the name-ordering key: leading digits, brackets and other
// punctuation are ignored, so "112 Operator" orders as "operator".
func SortKey(name string) string {
	trimmed := strings.TrimLeftFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if trimmed == "" {
		trimmed = name
	}
	return strings.ToLower(trimmed)
}

// NormalizeFolder canonicalizes an install folder name for matching against
// a Game's install-path hints.
func NormalizeFolder(name string) string {
	name = strings.Trim(name, "/\\ ")
	// Keep only the last path element; hints store relative folder paths.
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(name))
}
