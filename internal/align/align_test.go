package align

import "testing"

func TestUp(t *testing.T) {
	cases := map[uint64]uint64{
		0:     0,
		1:     PageSize,
		4096:  4096,
		4097:  8192,
		8192:  8192,
		8193:  12288,
	}
	for in, want := range cases {
		if got := Up(in); got != want {
			t.Errorf("Up(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDown(t *testing.T) {
	cases := map[uint64]uint64{
		0:     0,
		1:     0,
		4096:  4096,
		4097:  4096,
		8191:  4096,
		8192:  8192,
	}
	for in, want := range cases {
		if got := Down(in); got != want {
			t.Errorf("Down(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestIs(t *testing.T) {
	if !Is(0) || !Is(PageSize) || !Is(2 * PageSize) {
		t.Error("expected page multiples to be recognized")
	}
	if Is(1) || Is(PageSize+1) {
		t.Error("expected non-multiples to be rejected")
	}
}
