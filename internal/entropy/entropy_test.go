package entropy

import (
	"bytes"
	"math/rand/v2"
	"testing"
)

func TestDistinct(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	tests := []struct {
		name string
		p    []byte
		want int
	}{
		{"empty", nil, 0},
		{"one", []byte{7}, 1},
		{"zeros", make([]byte, 64), 1},
		{"two values", []byte{0, 255, 0, 255}, 2},
		{"all byte values", all, 256},
		{"all twice", append(all, all...), 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distinct(tt.p); got != tt.want {
				t.Errorf("Distinct() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScore_EightByteWindow(t *testing.T) {
	// With the default eight byte window the score is the distinct count.
	for d := 1; d <= 8; d++ {
		p := make([]byte, 8)
		for i := range p {
			p[i] = byte(i % d)
		}
		got, ok := Score(p)
		if !ok {
			t.Fatalf("Score(%v) not ok", p)
		}
		if got != d {
			t.Errorf("Score(%v) = %d, want %d", p, got, d)
		}
	}
}

func TestScore_Range(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for _, n := range []int{1, 2, 3, 8, 16, 64, 300} {
		p := make([]byte, n)
		for range 50 {
			for i := range p {
				p[i] = byte(r.UintN(256))
			}
			got, ok := Score(p)
			if !ok {
				t.Fatalf("Score(len %d) not ok", n)
			}
			if got < MinScore || got > MaxScore {
				t.Fatalf("Score(len %d) = %d outside [%d, %d]", n, got, MinScore, MaxScore)
			}
		}
	}
}

func TestScore_Extremes(t *testing.T) {
	for _, n := range []int{2, 8, 64, 256} {
		uniform := bytes.Repeat([]byte{0xAA}, n)
		if got, _ := Score(uniform); got != MinScore {
			t.Errorf("Score(uniform %d) = %d, want %d", n, got, MinScore)
		}
		distinct := make([]byte, n)
		for i := range distinct {
			distinct[i] = byte(i)
		}
		if got, _ := Score(distinct); got != MaxScore {
			t.Errorf("Score(distinct %d) = %d, want %d", n, got, MaxScore)
		}
	}
}

func TestScore_Empty(t *testing.T) {
	if _, ok := Score(nil); ok {
		t.Error("Score(nil) ok, want failure")
	}
	if _, ok := Score([]byte{}); ok {
		t.Error("Score(empty) ok, want failure")
	}
}

func TestScore_Deterministic(t *testing.T) {
	p := []byte("the quick brown fox jumps over the lazy dog")
	first, _ := Score(p)
	for range 100 {
		if got, _ := Score(p); got != first {
			t.Fatalf("Score() = %d, then %d", first, got)
		}
	}
}

func TestBucket_Monotonic(t *testing.T) {
	for _, m := range []int{2, 5, 8, 64, 256} {
		prev := 0
		for d := 1; d <= m; d++ {
			got := Bucket(d, m)
			if got < prev {
				t.Fatalf("Bucket(%d, %d) = %d < Bucket(%d, %d) = %d", d, m, got, d-1, m, prev)
			}
			prev = got
		}
		if prev != MaxScore {
			t.Errorf("Bucket(%d, %d) = %d, want %d", m, m, prev, MaxScore)
		}
	}
}

func BenchmarkScore(b *testing.B) {
	p := make([]byte, 64)
	for i := range p {
		p[i] = byte(i * 31)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Score(p)
	}
}
