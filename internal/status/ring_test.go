package status

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRingEvictsOldestFirst(t *testing.T) {
	t.Parallel()
	r := NewRing(100)
	for i := 0; i < 105; i++ {
		evicted, ok := r.Append(HistoryRecord{Seq: uint64(i)})
		if i < 100 && ok {
			t.Fatalf("append %d evicted %d before reaching capacity", i, evicted.Seq)
		}
		if i >= 100 && (!ok || evicted.Seq != uint64(i-100)) {
			t.Fatalf("append %d evicted (%d, %v), want (%d, true)", i, evicted.Seq, ok, i-100)
		}
	}
	snap := r.Snapshot()
	if len(snap) != 100 {
		t.Fatalf("len = %d, want 100", len(snap))
	}
	if snap[0].Seq != 5 || snap[99].Seq != 104 {
		t.Fatalf("retained %d..%d, want 5..104", snap[0].Seq, snap[99].Seq)
	}
}

func TestRingSnapshotIsIndependent(t *testing.T) {
	t.Parallel()
	r := NewRing(4)
	r.Append(HistoryRecord{Seq: 1, Text: "a", Args: []string{"a"}})

	snap := r.Snapshot()
	snap[0].Text = "mutated"
	snap[0].Args[0] = "mutated"

	again := r.Snapshot()
	if again[0].Text != "a" || again[0].Args[0] != "a" {
		t.Fatalf("internal state mutated via snapshot: %+v", again[0])
	}
}

func TestRingFilter(t *testing.T) {
	t.Parallel()
	r := NewRing(10)
	r.Append(HistoryRecord{Seq: 1, Severity: Info, Category: "request"})
	r.Append(HistoryRecord{Seq: 2, Severity: Error, Category: "request"})
	r.Append(HistoryRecord{Seq: 3, Severity: Error, Category: "config"})
	r.Append(HistoryRecord{Seq: 4, Severity: Debug, Category: "detector"})

	tests := []struct {
		name string
		sevs []Severity
		cats []string
		want []uint64
	}{
		{name: "no filter", want: []uint64{1, 2, 3, 4}},
		{name: "severity only", sevs: []Severity{Error}, want: []uint64{2, 3}},
		{name: "category only", cats: []string{"request"}, want: []uint64{1, 2}},
		{name: "both", sevs: []Severity{Error}, cats: []string{"config", "detector"}, want: []uint64{3}},
		{name: "empty slices match all", sevs: []Severity{}, cats: []string{}, want: []uint64{1, 2, 3, 4}},
		{name: "unknown severity matches nothing", sevs: []Severity{Severity(42)}, want: nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := r.Filter(tt.sevs, tt.cats)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Seq != tt.want[i] {
					t.Fatalf("record %d seq = %d, want %d", i, got[i].Seq, tt.want[i])
				}
			}
		})
	}
}

func TestRingClearAndSince(t *testing.T) {
	t.Parallel()
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Append(HistoryRecord{Seq: uint64(i)})
	}
	since := r.Since(3)
	if len(since) != 2 || since[0].Seq != 4 || since[1].Seq != 5 {
		t.Fatalf("Since(3) = %+v", since)
	}
	r.Clear()
	if r.Len() != 0 || len(r.Snapshot()) != 0 {
		t.Fatalf("expected empty ring after Clear, len=%d", r.Len())
	}
	r.Append(HistoryRecord{Seq: 9})
	if snap := r.Snapshot(); len(snap) != 1 || snap[0].Seq != 9 {
		t.Fatalf("unexpected snapshot after reuse: %+v", snap)
	}
}

func TestRingRetentionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ring keeps the newest min(n, cap) records in order", prop.ForAll(
		func(capacity, n int) bool {
			r := NewRing(capacity)
			for i := 0; i < n; i++ {
				r.Append(HistoryRecord{Seq: uint64(i)})
			}
			snap := r.Snapshot()
			want := n
			if want > capacity {
				want = capacity
			}
			if len(snap) != want || r.Len() != want {
				return false
			}
			first := n - want
			for i, rec := range snap {
				if rec.Seq != uint64(first+i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 64),
		gen.IntRange(0, 400),
	))

	properties.TestingRun(t)
}
