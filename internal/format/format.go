package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Amount renders value with a fixed number of decimals; unparseable input
// renders as "0".
func Amount(value string, decimals int) string {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "0"
	}
	return d.StringFixed(int32(decimals))
}

// Hash shortens h to its first and last n characters. Hashes shorter than 2n
// are returned unchanged.
func Hash(h string, n int) string {
	if len(h) < 2*n {
		return h
	}
	return h[:n] + "..." + h[len(h)-n:]
}

const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
)

// Size renders a byte count in B, KB, MB or GB with two decimals.
func Size(bytes string) string {
	n, err := strconv.ParseFloat(strings.TrimSpace(bytes), 64)
	if err != nil {
		return "0 B"
	}
	return SizeOf(n)
}

func SizeOf(n float64) string {
	switch {
	case n < kib:
		return fmt.Sprintf("%.2f B", n)
	case n < mib:
		return fmt.Sprintf("%.2f KB", n/kib)
	case n < gib:
		return fmt.Sprintf("%.2f MB", n/mib)
	default:
		return fmt.Sprintf("%.2f GB", n/gib)
	}
}

// Age renders a duration given in seconds as "sek", "min", "h" or "d".
func Age(seconds string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(seconds), 10, 64)
	if err != nil {
		return "Nepoznato"
	}
	return AgeOf(n)
}

func AgeOf(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d sek", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d min", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%d h", seconds/3600)
	default:
		return fmt.Sprintf("%d d", seconds/86400)
	}
}

// RelativeTime renders how long ago t was, e.g. "prije 5 min".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "Nepoznato"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	return "prije " + AgeOf(int64(d/time.Second))
}

var zagreb = loadZagreb()

func loadZagreb() *time.Location {
	loc, err := time.LoadLocation("Europe/Zagreb")
	if err != nil {
		return time.UTC
	}
	return loc
}

const dateLayout = "02. 01. 2006. 15:04:05"

// Date renders t as hr-HR locale does.
func Date(t time.Time) string {
	if t.IsZero() {
		return "Neispravan datum"
	}
	return t.In(zagreb).Format(dateLayout)
}

// DateString parses s with ParseTimestamp and renders it with Date.
func DateString(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return "Neispravan datum"
	}
	return Date(t)
}

// ParseTimestamp accepts unix seconds, RFC 3339 and the "2006-01-02 15:04:05"
// form used by Blockchair and Dune.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.000 UTC",
		"2006-01-02 15:04:05 UTC",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// Count groups thousands with dots, as hr-HR does.
func Count(n int64) string {
	return strings.ReplaceAll(humanize.Comma(n), ",", ".")
}
