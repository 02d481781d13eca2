package stats

import "strings"

// NameFormatter turns a raw entrant or trainer name into its display form.
type NameFormatter func(name string) string

// PlainName trims surrounding whitespace and returns the name otherwise unchanged.
func PlainName(name string) string {
	return strings.TrimSpace(name)
}

// AliasFormatter returns a formatter that maps configured raw names to display
// names and falls back to PlainName. Lookups ignore surrounding whitespace.
func AliasFormatter(aliases map[string]string) NameFormatter {
	table := make(map[string]string, len(aliases))
	for raw, display := range aliases {
		if display = strings.TrimSpace(display); display != "" {
			table[strings.TrimSpace(raw)] = display
		}
	}
	return func(name string) string {
		plain := PlainName(name)
		if display, ok := table[plain]; ok {
			return display
		}
		return plain
	}
}
