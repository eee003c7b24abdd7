package utils

import "testing"

func TestParseMoney_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"$ 20,000", "20000"},
		{"USD -20,000", "-20000"},
		{"  $1,234.50  ", "1234.5"},
		{"1 200", "1200"},
		{"(300)", "-300"},
	}
	for _, tc := range cases {
		d, err := ParseMoney(tc.in)
		if err != nil {
			t.Fatalf("ParseMoney(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseMoney(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseMoney_RejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "n/a", "$"} {
		if _, err := ParseMoney(in); err == nil {
			t.Fatalf("ParseMoney(%q) expected error", in)
		}
	}
}

func TestParseMoney_Numbers(t *testing.T) {
	d, err := ParseMoney(1500.25)
	if err != nil || d.String() != "1500.25" {
		t.Fatalf("ParseMoney(float) = %s, %v", d, err)
	}
	d, err = ParseMoney(int64(7))
	if err != nil || d.String() != "7" {
		t.Fatalf("ParseMoney(int64) = %s, %v", d, err)
	}
}
