package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// sizeUnits is the fixed unit table used by the catalog's archive size
// strings. The remote side writes decimal unit names with a 1024 factor
// ("150.00 MB" means 150 * 1024 * 1024 bytes), so go-humanize's 1000-based
// parser does not apply here.
var sizeUnits = map[string]int64{
	"B":  1,
	"KB": 1024,
	"MB": 1024 * 1024,
	"GB": 1024 * 1024 * 1024,
}

// unitOrder lists units largest-first for formatting.
var unitOrder = []struct {
	name   string
	factor int64
}{
	{"GB", 1024 * 1024 * 1024},
	{"MB", 1024 * 1024},
	{"KB", 1024},
	{"B", 1},
}

// ParseSize converts a catalog size string such as "150.00 MB" to bytes.
func ParseSize(s string) (int64, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, fmt.Errorf("invalid size %q: want \"<number> <unit>\"", s)
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid size %q: negative value", s)
	}

	factor, ok := sizeUnits[strings.ToUpper(fields[1])]
	if !ok {
		return 0, fmt.Errorf("invalid size %q: unknown unit %q", s, fields[1])
	}

	return int64(value * float64(factor)), nil
}

// FormatSize renders a byte count in the catalog's size format using the
// largest unit that keeps the value at or above 1. FormatSize(ParseSize(s))
// round-trips within two-decimal formatting precision.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	for _, u := range unitOrder {
		if bytes >= u.factor {
			return fmt.Sprintf("%.2f %s", float64(bytes)/float64(u.factor), u.name)
		}
	}
	return fmt.Sprintf("%.2f B", float64(bytes))
}
