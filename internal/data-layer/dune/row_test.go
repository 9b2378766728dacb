package dune

import (
	"testing"
	"time"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		row     Row
		columns []string
		field   Field
		want    float64
		wantKey string
		wantOK  bool
	}{
		{
			name:    "exact key wins",
			row:     Row{"fee": 12.0, "avg_fee": 21.5},
			field:   BtcAvgFee.Field,
			want:    21.5,
			wantKey: "avg_fee",
			wantOK:  true,
		},
		{
			name:    "numeric string under exact key",
			row:     Row{"price_usd": "61000.5"},
			field:   BtcPrice.Field,
			want:    61000.5,
			wantKey: "price_usd",
			wantOK:  true,
		},
		{
			name:    "zero balance is an answer",
			row:     Row{"address": "0xabc", "balance": "0", "block_number": 19000000.0},
			columns: []string{"address", "balance", "block_number"},
			field:   EthBalance.Field,
			want:    0,
			wantKey: "balance",
			wantOK:  true,
		},
		{
			name:    "exact field ignores other columns",
			row:     Row{"address": "0xabc", "block_number": 19000000.0},
			columns: []string{"address", "block_number"},
			field:   EthBalance.Field,
			wantOK:  false,
		},
		{
			name:    "zero exact value is skipped",
			row:     Row{"height": 0.0, "tip": "840000"},
			field:   Field{Keys: []string{"height", "tip"}},
			want:    840000,
			wantKey: "tip",
			wantOK:  true,
		},
		{
			name:    "fragment match",
			row:     Row{"label": "x", "median_fee_sat": 14.0},
			field:   BtcAvgFee.Field,
			want:    14,
			wantKey: "median_fee_sat",
			wantOK:  true,
		},
		{
			name:    "first numeric in column order",
			row:     Row{"a": 2.0, "b": 1.0},
			columns: []string{"b", "a"},
			field:   Field{Keys: []string{"missing"}},
			want:    1,
			wantKey: "b",
			wantOK:  true,
		},
		{
			name:    "first numeric in sorted order without columns",
			row:     Row{"zeta": 9.0, "alpha": 3.0},
			field:   Field{},
			want:    3,
			wantKey: "alpha",
			wantOK:  true,
		},
		{
			name:   "nothing numeric",
			row:    Row{"name": "bitcoin"},
			field:  BtcPrice.Field,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, key, ok := Extract(tt.row, tt.columns, tt.field)
			if ok != tt.wantOK || got != tt.want || key != tt.wantKey {
				t.Errorf("Extract() = (%v, %q, %v), want (%v, %q, %v)", got, key, ok, tt.want, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestRowTime(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	cases := []Row{
		{"block_time": "2024-05-01 12:30:00.000 UTC"},
		{"block_time": "2024-05-01T12:30:00Z"},
		{"block_time": float64(want.Unix())},
		{"time": "2024-05-01 12:30:00"},
	}
	for _, row := range cases {
		got, ok := row.Time("block_time", "time")
		if !ok || !got.Equal(want) {
			t.Errorf("Time(%v) = %v, %v", row, got, ok)
		}
	}
	if _, ok := (Row{"block_time": "yesterday"}).Time("block_time"); ok {
		t.Error("expected unparseable time to fail")
	}
}

func TestRowString(t *testing.T) {
	row := Row{"hash": "", "txid": "abc", "block_number": 19000000.0}
	if got := row.String("hash", "txid"); got != "abc" {
		t.Errorf("String() = %q, want abc", got)
	}
	if got := row.String("block_number"); got != "19000000" {
		t.Errorf("String() = %q, want 19000000", got)
	}
}
