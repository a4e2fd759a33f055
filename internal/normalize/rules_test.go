package normalize

import (
	"testing"

	"hargalist/internal"
)

func TestResolveName(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		want     string
		category internal.Category
	}{
		{name: "indonesian single", input: "wortel", want: "Carrot", category: internal.CategoryVegetables},
		{name: "indonesian with descriptor", input: "apel fuji", want: "Apple Fuji", category: internal.CategoryFruits},
		{name: "multi word phrase", input: "bawang merah", want: "Shallot", category: internal.CategoryVegetables},
		{name: "phrase beats word", input: "minyak goreng bimoli", want: "Oil Cooking Bimoli", category: internal.CategoryOils},
		{name: "english reorder", input: "Mozzarella Cheese", want: "Cheese Mozzarella", category: internal.CategoryDairy},
		{name: "noise stripped", input: "wortel segar premium", want: "Carrot", category: internal.CategoryVegetables},
		{name: "case insensitive", input: "APEL Fuji", want: "Apple Fuji", category: internal.CategoryFruits},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveName(tc.input)
			if !got.Resolved {
				t.Fatalf("not resolved")
			}
			if got.StdName != tc.want {
				t.Fatalf("name=%q want %q", got.StdName, tc.want)
			}
			if got.Category != tc.category {
				t.Fatalf("category=%s want %s", got.Category, tc.category)
			}
		})
	}
}

func TestResolveNameUnknown(t *testing.T) {
	if got := ResolveName("barang misterius"); got.Resolved {
		t.Fatalf("resolved unknown name: %+v", got)
	}
}

func TestResolveUnit(t *testing.T) {
	cases := []struct {
		input string
		unit  string
		qty   float64
	}{
		{input: "kg", unit: "kg"},
		{input: "KG", unit: "kg"},
		{input: "gr", unit: "g"},
		{input: "botol", unit: "bottle"},
		{input: "250ml", unit: "ml", qty: 250},
		{input: "1,5l", unit: "l", qty: 1.5},
		{input: "ikat", unit: "bunch"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got := ResolveUnit(tc.input)
			if !got.Known {
				t.Fatalf("unknown")
			}
			if got.StdUnit != tc.unit {
				t.Fatalf("unit=%q want %q", got.StdUnit, tc.unit)
			}
			if tc.qty != 0 {
				if got.Quantity == nil || *got.Quantity != tc.qty {
					t.Fatalf("qty=%v want %v", got.Quantity, tc.qty)
				}
			}
		})
	}
}

func TestResolveUnitThousandsMarker(t *testing.T) {
	for _, input := range []string{"k", "K", "rb", "ribu"} {
		got := ResolveUnit(input)
		if !got.Thousands {
			t.Fatalf("%q not a thousands marker", input)
		}
		if got.StdUnit != "" {
			t.Fatalf("%q produced unit %q", input, got.StdUnit)
		}
	}
}

func TestGuessCategory(t *testing.T) {
	if got := GuessCategory("sayuran"); got != internal.CategoryVegetables {
		t.Fatalf("got %s", got)
	}
	if got := GuessCategory("whatever"); got != internal.CategoryOther {
		t.Fatalf("got %s", got)
	}
}
