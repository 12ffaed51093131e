package datagen

import (
	"testing"
)

func TestHexID(t *testing.T) {
	f := NewFakerWithSeed(1)

	id := f.HexID(32)
	if len(id) != 32 {
		t.Fatalf("Expected length 32, got %d", len(id))
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("Unexpected character %q in hex id", c)
		}
	}
}

func TestIntRange(t *testing.T) {
	f := NewFakerWithSeed(1)

	for i := 0; i < 100; i++ {
		v := f.Int(1, 6)
		if v < 1 || v > 6 {
			t.Fatalf("Int(1, 6) returned %d", v)
		}
	}
}

func TestChoose(t *testing.T) {
	f := NewFakerWithSeed(1)

	items := []string{"a", "b", "c"}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[Choose(f, items)] = true
	}
	for _, item := range items {
		if !seen[item] {
			t.Errorf("Choose never returned %q", item)
		}
	}

	var empty []string
	if got := Choose(f, empty); got != "" {
		t.Errorf("Choose on empty slice returned %q", got)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFakerWithSeed(1)

	items := []string{"common", "rare"}
	weights := []int{99, 1}

	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		counts[ChooseWeighted(f, items, weights)]++
	}

	if counts["common"] < counts["rare"] {
		t.Errorf("Weighted choice ignored weights: %v", counts)
	}
}

func TestSeededFakerIsDeterministic(t *testing.T) {
	a := NewFakerWithSeed(7)
	b := NewFakerWithSeed(7)

	for i := 0; i < 10; i++ {
		if a.HexID(16) != b.HexID(16) {
			t.Fatal("Same seed produced different sequences")
		}
	}
}
