package util

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "dot grouped", input: "8.000", want: 8000},
		{name: "comma grouped", input: "8,000", want: 8000},
		{name: "rupiah prefix", input: "Rp 12.500", want: 12500},
		{name: "idr prefix", input: "IDR 25000", want: 25000},
		{name: "k suffix", input: "8k", want: 8000},
		{name: "rb suffix", input: "25 rb", want: 25000},
		{name: "ribu suffix", input: "10 ribu", want: 10000},
		{name: "decimal comma", input: "1,5", want: 1.5},
		{name: "decimal dot", input: "25.5", want: 25.5},
		{name: "mixed separators", input: "1.234,56", want: 1234.56},
		{name: "space grouped", input: "1 000", want: 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParsePrice(tc.input)
			if !ok {
				t.Fatalf("not parsed")
			}
			if got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestParsePriceRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "call us", "-", "n/a"} {
		if _, ok := ParsePrice(input); ok {
			t.Fatalf("parsed %q", input)
		}
	}
}

func TestHasThousandsSuffix(t *testing.T) {
	for _, input := range []string{"8k", "25 rb", "Rp 10 ribu"} {
		if !HasThousandsSuffix(input) {
			t.Fatalf("%q not recognized", input)
		}
	}
	for _, input := range []string{"8000", "Rp 12.500", ""} {
		if HasThousandsSuffix(input) {
			t.Fatalf("%q wrongly recognized", input)
		}
	}
}

func TestIsThousandsMarker(t *testing.T) {
	for _, token := range []string{"k", "K", "rb", "Rb.", "ribu"} {
		if !IsThousandsMarker(token) {
			t.Fatalf("%q not recognized", token)
		}
	}
	for _, token := range []string{"kg", "krat", "botol"} {
		if IsThousandsMarker(token) {
			t.Fatalf("%q wrongly recognized", token)
		}
	}
}
