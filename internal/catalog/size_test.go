package catalog

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"150.00 MB", 150 * 1024 * 1024},
		{"1.00 GB", 1024 * 1024 * 1024},
		{"512 KB", 512 * 1024},
		{"42 B", 42},
		{"0.50 MB", 512 * 1024},
		{"  2.00 gb  ", 2 * 1024 * 1024 * 1024},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if err != nil {
			t.Errorf("ParseSize(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "MB", "150MB extra junk", "abc MB", "-1 MB", "150 TB"} {
		if _, err := ParseSize(in); err == nil {
			t.Errorf("ParseSize(%q) = nil error, want error", in)
		}
	}
}

func TestFormatSize_RoundTrip(t *testing.T) {
	for _, bytes := range []int64{42, 512 * 1024, 150 * 1024 * 1024, 3 * 1024 * 1024 * 1024} {
		s := FormatSize(bytes)
		back, err := ParseSize(s)
		if err != nil {
			t.Fatalf("ParseSize(FormatSize(%d)) failed: %v", bytes, err)
		}
		// Two-decimal formatting loses at most 1% of the unit factor.
		diff := bytes - back
		if diff < 0 {
			diff = -diff
		}
		if float64(diff) > float64(bytes)*0.01 {
			t.Errorf("round trip %d -> %q -> %d drifts too far", bytes, s, back)
		}
	}
}

func TestFormatSize(t *testing.T) {
	if got := FormatSize(150 * 1024 * 1024); got != "150.00 MB" {
		t.Errorf("FormatSize = %q, want '150.00 MB'", got)
	}
	if got := FormatSize(42); got != "42.00 B" {
		t.Errorf("FormatSize = %q, want '42.00 B'", got)
	}
}
