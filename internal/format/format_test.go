package format

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestUnitConversions(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := WeiToEth(wei).String(); got != "1.5" {
		t.Errorf("WeiToEth = %s, want 1.5", got)
	}
	if got := WeiStringToEth("0x6f05b59d3b20000").String(); got != "0.5" {
		t.Errorf("WeiStringToEth(hex) = %s, want 0.5", got)
	}
	if got := WeiStringToEth("garbage"); !got.IsZero() {
		t.Errorf("WeiStringToEth(garbage) = %s, want 0", got)
	}
	if got := GweiFromWei(decimal.NewFromInt(25_000_000_000)).String(); got != "25" {
		t.Errorf("GweiFromWei = %s, want 25", got)
	}
	if got := SatoshiToBTC(12_345_678).String(); got != "0.12345678" {
		t.Errorf("SatoshiToBTC = %s", got)
	}
	if got := LamportsToSOL(5000).String(); got != "0.000005" {
		t.Errorf("LamportsToSOL = %s", got)
	}
}

func TestParseWeiLeadingZero(t *testing.T) {
	n, err := ParseWei("0x0a")
	if err != nil || n.Int64() != 10 {
		t.Fatalf("ParseWei(0x0a) = %v, %v", n, err)
	}
}

func TestAmount(t *testing.T) {
	cases := map[string]string{
		"1.5":       "1.50000000",
		"0.1234567": "0.12345670",
		"abc":       "0",
		"":          "0",
	}
	for in, want := range cases {
		if got := Amount(in, 8); got != want {
			t.Errorf("Amount(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Amount("2.345", 2); got != "2.35" {
		t.Errorf("Amount(2.345, 2) = %q", got)
	}
}

func TestHash(t *testing.T) {
	h := "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	if got := Hash(h, 8); got != "0x5c504e...a1b22060" {
		t.Errorf("Hash() = %q", got)
	}
	if got := Hash("abcdef", 4); got != "abcdef" {
		t.Errorf("Hash(short) = %q, want unchanged", got)
	}
	if got := Hash("abcdefgh", 4); got != "abcd...efgh" {
		t.Errorf("Hash(2n) = %q", got)
	}
}

func TestSize(t *testing.T) {
	cases := map[string]string{
		"512":        "512.00 B",
		"1536":       "1.50 KB",
		"1572864":    "1.50 MB",
		"3221225472": "3.00 GB",
		"x":          "0 B",
	}
	for in, want := range cases {
		if got := Size(in); got != want {
			t.Errorf("Size(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAge(t *testing.T) {
	cases := map[string]string{
		"45":     "45 sek",
		"125":    "2 min",
		"7200":   "2 h",
		"172800": "2 d",
		"soon":   "Nepoznato",
	}
	for in, want := range cases {
		if got := Age(in); got != want {
			t.Errorf("Age(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := RelativeTime(now.Add(-5*time.Minute), now); got != "prije 5 min" {
		t.Errorf("RelativeTime = %q", got)
	}
	if got := RelativeTime(now.Add(time.Minute), now); got != "prije 0 sek" {
		t.Errorf("RelativeTime(future) = %q", got)
	}
	if got := RelativeTime(time.Time{}, now); got != "Nepoznato" {
		t.Errorf("RelativeTime(zero) = %q", got)
	}
}

func TestDate(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 5, 7, 0, time.UTC)
	if got := Date(ts); got != "15. 01. 2024. 10:05:07" {
		t.Errorf("Date() = %q", got)
	}
	if got := Date(time.Time{}); got != "Neispravan datum" {
		t.Errorf("Date(zero) = %q", got)
	}
	if got := DateString("not a date"); got != "Neispravan datum" {
		t.Errorf("DateString(bad) = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 15, 9, 5, 7, 0, time.UTC)
	for _, in := range []string{"1705309507", "2024-01-15T09:05:07Z", "2024-01-15 09:05:07"} {
		got, err := ParseTimestamp(in)
		if err != nil || !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, %v", in, got, err)
		}
	}
}

func TestCount(t *testing.T) {
	if got := Count(1250000000); got != "1.250.000.000" {
		t.Errorf("Count() = %q", got)
	}
}
