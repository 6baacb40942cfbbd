package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNumberUnmarshalLenient(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"plain", `2.5`, 2.5},
		{"quoted", `"3"`, 3},
		{"quoted decimal", `"19.99"`, 19.99},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
		{"junk", `"abc"`, 0},
		{"padded", `" 7 "`, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var n Number
			if err := json.Unmarshal([]byte(tc.raw), &n); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if n.Float64() != tc.want {
				t.Fatalf("Number(%s) = %v, want %v", tc.raw, n.Float64(), tc.want)
			}
		})
	}
}

func TestLineItemDecodeFromLooseJSON(t *testing.T) {
	raw := `{"description":"Design","qty":"2","rate":null}`
	var item LineItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Qty != 2 || item.Rate != 0 {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Amount() != 0 {
		t.Fatalf("amount = %v, want 0", item.Amount())
	}
}

func TestParseStatus(t *testing.T) {
	for raw, want := range map[string]Status{
		"draft":    StatusDraft,
		"SENT":     StatusSent,
		" Paid ":   StatusPaid,
		"overdue":  StatusOverdue,
		"OVERDUE ": StatusOverdue,
	} {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", raw, got, want)
		}
	}

	for _, raw := range []string{"", "void", "cancelled", "paid-ish"} {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("ParseStatus(%q) err = %v, want ErrInvalidStatus", raw, err)
		}
	}
}
