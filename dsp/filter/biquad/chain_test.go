package biquad

import (
	"math"
	"testing"
)

func twoSections() []Coefficients {
	return []Coefficients{
		smoothing(),
		{B0: 0.1, B1: 0.2, B2: 0.1, A1: -0.5, A2: 0.1},
	}
}

func TestChain_MatchesManualCascade(t *testing.T) {
	coeffs := twoSections()
	s1 := NewSection(coeffs[0])
	s2 := NewSection(coeffs[1])
	chain := NewChain(coeffs)

	if chain.Order() != 4 || chain.NumSections() != 2 {
		t.Fatalf("order=%d sections=%d, want 4 and 2", chain.Order(), chain.NumSections())
	}

	for i, x := range []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8} {
		want := s2.ProcessSample(s1.ProcessSample(x))
		if got := chain.ProcessSample(x); !almostEqual(got, want, eps) {
			t.Errorf("sample %d: chain=%.15f, manual=%.15f", i, got, want)
		}
	}
}

func TestChain_BlockVariantsMatchSample(t *testing.T) {
	input := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8}

	ref := NewChain(twoSections())
	want := make([]float64, len(input))

	for i, x := range input {
		want[i] = ref.ProcessSample(x)
	}

	inPlace := append([]float64(nil), input...)
	NewChain(twoSections()).ProcessBlock(inPlace)

	dst := make([]float64, len(input))
	NewChain(twoSections()).ProcessBlockTo(dst, input)

	for i := range want {
		if !almostEqual(inPlace[i], want[i], eps) {
			t.Errorf("ProcessBlock[%d] = %.15f, want %.15f", i, inPlace[i], want[i])
		}

		if !almostEqual(dst[i], want[i], eps) {
			t.Errorf("ProcessBlockTo[%d] = %.15f, want %.15f", i, dst[i], want[i])
		}
	}
}

func TestChain_EmptyIsIdentity(t *testing.T) {
	chain := NewChain(nil)
	src := []float64{1, -2, 3}
	dst := make([]float64, 3)
	chain.ProcessBlockTo(dst, src)

	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], src[i])
		}
	}
}

func TestChain_UpdateCoefficientsKeepsState(t *testing.T) {
	chain := NewChain(twoSections())
	for range 16 {
		chain.ProcessSample(0.5)
	}

	before := chain.State()

	next := []Coefficients{
		{B0: 0.3, B1: 0.3, B2: 0.3, A1: -0.1, A2: 0.02},
		smoothing(),
	}
	chain.UpdateCoefficients(next)

	after := chain.State()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("section %d state changed: %v -> %v", i, before[i], after[i])
		}
	}

	if chain.Section(0).Coefficients != next[0] {
		t.Fatal("coefficients were not applied")
	}

	chain.UpdateCoefficients(next[:1])

	if chain.NumSections() != 1 || chain.State()[0] != [2]float64{} {
		t.Fatal("resized chain should start from zero state")
	}
}

func TestChain_ImpulseResponsePreservesState(t *testing.T) {
	chain := NewChain(twoSections())
	chain.ProcessSample(1)
	chain.ProcessSample(-0.25)

	saved := chain.State()
	ir := chain.ImpulseResponse(32)

	if len(ir) != 32 {
		t.Fatalf("len(ir) = %d, want 32", len(ir))
	}

	if !almostEqual(ir[0], 0.25*0.1, eps) {
		t.Fatalf("ir[0] = %v, want %v", ir[0], 0.025)
	}

	now := chain.State()
	for i := range saved {
		if saved[i] != now[i] {
			t.Fatalf("state of section %d was disturbed", i)
		}
	}

	if chain.ImpulseResponse(0) != nil {
		t.Fatal("expected nil for n=0")
	}
}

func TestChain_StableDecay(t *testing.T) {
	chain := NewChain(twoSections())
	chain.ProcessSample(1)

	for range 10000 {
		chain.ProcessSample(0)
	}

	for i, st := range chain.State() {
		if math.Abs(st[0]) > 1e-100 || math.Abs(st[1]) > 1e-100 {
			t.Errorf("section %d did not decay: %v", i, st)
		}
	}
}
