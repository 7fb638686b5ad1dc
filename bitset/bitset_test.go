package bitset

import "testing"

func TestBitSet_GetSet(t *testing.T) {
	b := New(100)

	if b.Get(0) {
		t.Errorf("expected bit 0 clear initially")
	}

	b.Set(2, true)
	b.Set(7, true)
	b.Set(99, true)

	if !b.Get(2) || !b.Get(7) || !b.Get(99) {
		t.Errorf("expected bits 2, 7, 99 set")
	}
	if b.Get(0) || b.Get(1) || b.Get(98) {
		t.Errorf("unexpected bit set")
	}
	if b.NbTrue() != 3 {
		t.Errorf("expected nbTrue=3, got %d", b.NbTrue())
	}
}

func TestBitSet_SetIdempotent(t *testing.T) {
	b := New(8)

	b.Set(3, true)
	b.Set(3, true)
	if b.NbTrue() != 1 {
		t.Errorf("expected nbTrue=1 after repeated set, got %d", b.NbTrue())
	}

	b.Set(3, false)
	b.Set(3, false)
	if b.NbTrue() != 0 {
		t.Errorf("expected nbTrue=0 after repeated clear, got %d", b.NbTrue())
	}
}

func TestBitSet_Complete(t *testing.T) {
	b := New(4)
	if b.Complete() {
		t.Errorf("empty bitset should not be complete")
	}
	for i := 0; i < 4; i++ {
		b.Set(i, true)
	}
	if !b.Complete() {
		t.Errorf("fully set bitset should be complete")
	}
}
