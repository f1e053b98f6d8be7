package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"4.50", 450, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
		{"100000000000", MaxAmountCents, true},
		{"100000000000.01", 0, false},
		{"92233720368547757", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		450:    "4.50",
		199550: "1995.50",
		-450:   "-4.50",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Fatalf("FormatAmount(%d)=%q, want %q", in, got, want)
		}
	}
	if got := FormatCurrency(-450); got != "-$4.50" {
		t.Fatalf("FormatCurrency(-450)=%q", got)
	}
	if got := FormatCurrency(200000); got != "$2000.00" {
		t.Fatalf("FormatCurrency(200000)=%q", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 450})
	if err != nil || string(b) != "4.50" {
		t.Fatalf("marshal: %s err=%v", b, err)
	}

	cases := map[string]int64{
		`4.5`:          450,
		`2000`:         200000,
		`"12.30"`:      1230,
		`4.4999999999`: 450,
		`-3`:           -300,
		`1e2`:          10000,
		`null`:         0,
	}
	for in, want := range cases {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != want {
			t.Fatalf("unmarshal %s: got %d want %d", in, m.Cents, want)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
	if err := json.Unmarshal([]byte(`1e300`), &m); err == nil {
		t.Fatalf("expected error for out of range amount")
	}
}
