package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func newTestLog(t *testing.T, opts Options) (*Log, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	opts.Clock = clk
	l := New(opts)
	t.Cleanup(l.Close)
	return l, clk
}

// visibleText returns the visible text or "" when nothing is visible.
func visibleText(l *Log) string {
	m, ok := l.CurrentVisible()
	if !ok {
		return ""
	}
	return m.Text
}

func TestHistoryKeepsMostRecentRecords(t *testing.T) {
	l, _ := newTestLog(t, Options{Capacity: 100})
	for i := 0; i < 105; i++ {
		l.Info("request", "record", i)
	}
	h := l.History()
	if len(h) != 100 {
		t.Fatalf("history len = %d, want 100", len(h))
	}
	if h[0].Text != "record 5" || h[99].Text != "record 104" {
		t.Fatalf("retained %q..%q, want record 5..record 104", h[0].Text, h[99].Text)
	}
}

func TestPostReplacesSlot(t *testing.T) {
	l, _ := newTestLog(t, Options{})
	l.Info("request", "a")
	l.Info("request", "b")

	if got := visibleText(l); got != "b" {
		t.Fatalf("visible = %q, want b", got)
	}
	if slots := l.Slots(); len(slots) != 1 || slots[0].Text != "b" {
		t.Fatalf("slots = %+v, want single message b", slots)
	}
	if n := len(l.History()); n != 2 {
		t.Fatalf("history len = %d, want 2 (one record per write)", n)
	}
}

func TestFlashStacking(t *testing.T) {
	l, clk := newTestLog(t, Options{})

	var seen []string
	l.OnVisibilityChange(func(m SlotMessage, ok bool) {
		if !ok {
			seen = append(seen, "<none>")
			return
		}
		seen = append(seen, m.Text)
	})

	l.InfoFlash(200*time.Millisecond, "s1", "A")
	l.WarnFlash(100*time.Millisecond, "s2", "B")
	if got := visibleText(l); got != "B" {
		t.Fatalf("visible = %q, want B", got)
	}

	clk.Advance(120 * time.Millisecond)
	if got := visibleText(l); got != "A" {
		t.Fatalf("after 120ms visible = %q, want A", got)
	}

	clk.Advance(100 * time.Millisecond)
	if _, ok := l.CurrentVisible(); ok {
		t.Fatalf("after 220ms expected nothing visible, got %q", visibleText(l))
	}

	want := []string{"A", "B", "A", "<none>"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}

	// Expired flashes are filtered, not deleted.
	if n := len(l.Slots()); n != 2 {
		t.Fatalf("slots = %d, want 2 expired entries kept", n)
	}
	if n := l.Prune(); n != 2 || len(l.Slots()) != 0 {
		t.Fatalf("Prune removed %d, slots left %d", n, len(l.Slots()))
	}
}

func TestSeverityPriorityAmongPersistent(t *testing.T) {
	l, clk := newTestLog(t, Options{})
	l.Info("request", "info")
	clk.Advance(time.Millisecond)
	l.Error("config", "error")
	clk.Advance(time.Millisecond)
	l.Warn("detector", "warn")

	m, ok := l.CurrentVisible()
	if !ok || m.Severity != Error || m.Text != "error" {
		t.Fatalf("visible = %+v (ok=%v), want the error message", m, ok)
	}
}

func TestSameSeverityMostRecentWins(t *testing.T) {
	t.Run("distinct instants", func(t *testing.T) {
		l, clk := newTestLog(t, Options{})
		l.Warn("a", "first")
		clk.Advance(time.Millisecond)
		l.Warn("b", "second")
		if got := visibleText(l); got != "second" {
			t.Fatalf("visible = %q, want second", got)
		}
		clk.Advance(time.Millisecond)
		l.Warn("a", "third")
		if got := visibleText(l); got != "third" {
			t.Fatalf("visible = %q, want third", got)
		}
	})
	t.Run("same instant uses write order", func(t *testing.T) {
		l, _ := newTestLog(t, Options{})
		l.Warn("b", "first")
		l.Warn("a", "second")
		if got := visibleText(l); got != "second" {
			t.Fatalf("visible = %q, want second", got)
		}
	})
}

func TestTransientOutranksPersistent(t *testing.T) {
	l, clk := newTestLog(t, Options{})
	l.Error("config", "broken")
	l.InfoFlash(time.Second, "action", "copied")

	if got := visibleText(l); got != "copied" {
		t.Fatalf("visible = %q, want copied", got)
	}
	clk.Advance(time.Second)
	if got := visibleText(l); got != "broken" {
		t.Fatalf("after flash expiry visible = %q, want broken", got)
	}
}

func TestFlashDefaultTimeout(t *testing.T) {
	l, _ := newTestLog(t, Options{DefaultFlash: 2 * time.Second})
	m := l.InfoFlash(0, "action", "saved")
	if got := m.ExpiresAt.Sub(m.PostedAt); got != 2*time.Second {
		t.Fatalf("flash lifetime = %v, want 2s", got)
	}
}

func TestSchedulerKeepsSingleTimer(t *testing.T) {
	l, clk := newTestLog(t, Options{})
	base := clk.Now()

	l.InfoFlash(300*time.Millisecond, "a", "a")
	l.InfoFlash(100*time.Millisecond, "b", "b")
	l.InfoFlash(200*time.Millisecond, "c", "c")

	if n := clk.pending(); n != 1 {
		t.Fatalf("pending timers = %d, want 1", n)
	}
	at, ok := l.NextExpiry()
	if !ok || !at.Equal(base.Add(100*time.Millisecond)) {
		t.Fatalf("next expiry = %v (ok=%v), want +100ms", at, ok)
	}

	// A persistent post does not touch the timer.
	l.Info("request", "idle")
	if n := clk.pending(); n != 1 {
		t.Fatalf("pending timers after persistent post = %d, want 1", n)
	}

	clk.Advance(150 * time.Millisecond)
	at, ok = l.NextExpiry()
	if !ok || !at.Equal(base.Add(200*time.Millisecond)) {
		t.Fatalf("next expiry = %v (ok=%v), want +200ms", at, ok)
	}
	if n := clk.pending(); n != 1 {
		t.Fatalf("pending timers = %d, want 1", n)
	}

	clk.Advance(time.Second)
	if _, ok := l.NextExpiry(); ok {
		t.Fatal("expected idle scheduler once every flash expired")
	}
	if n := clk.pending(); n != 0 {
		t.Fatalf("pending timers = %d, want 0", n)
	}
	if got := visibleText(l); got != "idle" {
		t.Fatalf("visible = %q, want idle", got)
	}
}

func TestClearingEarliestFlashRearms(t *testing.T) {
	l, clk := newTestLog(t, Options{})
	base := clk.Now()
	l.InfoFlash(100*time.Millisecond, "a", "a")
	l.InfoFlash(500*time.Millisecond, "b", "b")

	l.ClearSlot("a")
	at, ok := l.NextExpiry()
	if !ok || !at.Equal(base.Add(500*time.Millisecond)) {
		t.Fatalf("next expiry = %v (ok=%v), want +500ms", at, ok)
	}
	if n := clk.pending(); n != 1 {
		t.Fatalf("pending timers = %d, want 1", n)
	}

	// Replacing the flash with a persistent message leaves nothing to wait for.
	l.Info("b", "steady")
	if _, ok := l.NextExpiry(); ok {
		t.Fatal("expected idle scheduler")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	l, _ := newTestLog(t, Options{})

	var a, b, hist int
	unsubA := l.OnVisibilityChange(func(SlotMessage, bool) { a++ })
	l.OnVisibilityChange(func(SlotMessage, bool) { b++ })
	unsubHist := l.OnHistoryChange(func([]HistoryRecord) { hist++ })

	l.Info("request", "one")
	unsubA()
	unsubA()
	unsubHist()
	l.Info("request", "two")

	if a != 1 {
		t.Fatalf("removed subscriber called %d times, want 1", a)
	}
	if b != 2 {
		t.Fatalf("remaining subscriber called %d times, want 2", b)
	}
	if hist != 1 {
		t.Fatalf("history subscriber called %d times, want 1", hist)
	}
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	l, _ := newTestLog(t, Options{})

	var second int
	var unsubSecond func()
	l.OnVisibilityChange(func(SlotMessage, bool) { unsubSecond() })
	unsubSecond = l.OnVisibilityChange(func(SlotMessage, bool) { second++ })

	l.Info("request", "x")
	if second != 0 {
		t.Fatalf("subscriber removed earlier in the same delivery was called %d times", second)
	}
}

func TestSubscriberSeesOnlyLaterChanges(t *testing.T) {
	l, _ := newTestLog(t, Options{})
	l.Info("request", "before")

	var got [][]HistoryRecord
	l.OnHistoryChange(func(h []HistoryRecord) { got = append(got, h) })
	l.Warn("request", "after")

	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
	if n := len(got[0]); n != 2 || got[0][1].Text != "after" {
		t.Fatalf("delivered snapshot = %+v", got[0])
	}
}

func TestClearNotifiesVisibilityOnly(t *testing.T) {
	l, _ := newTestLog(t, Options{})
	l.Warn("request", "slow")

	var vis, hist int
	l.OnVisibilityChange(func(SlotMessage, bool) { vis++ })
	l.OnHistoryChange(func([]HistoryRecord) { hist++ })

	if l.ClearSlot("missing") {
		t.Fatal("clearing a missing slot reported a removal")
	}
	if !l.ClearSlot("request") {
		t.Fatal("expected request slot to be removed")
	}
	if vis != 2 || hist != 0 {
		t.Fatalf("visibility=%d history=%d, want 2 and 0", vis, hist)
	}
	if n := len(l.History()); n != 1 {
		t.Fatalf("history len = %d, want 1 (clears are not log events)", n)
	}
}

func TestClearSlotSeverityFilter(t *testing.T) {
	l, _ := newTestLog(t, Options{})
	l.Warn("request", "slow")

	if l.ClearSlot("request", Error) {
		t.Fatal("severity filter should have kept the warn message")
	}
	if !l.ClearSlot("request", Warn, Error) {
		t.Fatal("expected warn message to be removed")
	}
}

func TestClearAll(t *testing.T) {
	l, _ := newTestLog(t, Options{})
	l.Info("a", "a")
	l.Error("b", "b")
	l.WarnFlash(time.Minute, "c", "c")

	if n := l.ClearAll(Error); n != 1 {
		t.Fatalf("ClearAll(Error) removed %d, want 1", n)
	}
	if n := l.ClearAll(); n != 2 {
		t.Fatalf("ClearAll() removed %d, want 2", n)
	}
	if _, ok := l.CurrentVisible(); ok {
		t.Fatal("expected nothing visible after ClearAll")
	}
	if _, ok := l.NextExpiry(); ok {
		t.Fatal("expected idle scheduler after ClearAll")
	}
}

func TestClearHistory(t *testing.T) {
	l, _ := newTestLog(t, Options{})
	l.Info("a", "a")

	var got []HistoryRecord
	called := false
	l.OnHistoryChange(func(h []HistoryRecord) { got, called = h, true })
	l.ClearHistory()

	if !called || len(got) != 0 || len(l.History()) != 0 {
		t.Fatalf("called=%v delivered=%d history=%d", called, len(got), len(l.History()))
	}
	if got := visibleText(l); got != "a" {
		t.Fatalf("clearing history should not touch slots, visible = %q", got)
	}
}

func TestExportHistory(t *testing.T) {
	l, clk := newTestLog(t, Options{})
	l.Info("request", "GET", 200)
	clk.Advance(1500 * time.Millisecond)
	l.ErrorFlash(time.Second, "action", errors.New("copy failed"))

	var entries []ExportEntry
	if err := json.Unmarshal(l.ExportHistory(), &entries); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	h := l.History()
	if len(entries) != len(h) {
		t.Fatalf("entries = %d, want %d", len(entries), len(h))
	}
	for i, e := range entries {
		ts, err := time.Parse(time.RFC3339Nano, e.Time)
		if err != nil {
			t.Fatalf("entry %d timestamp %q: %v", i, e.Time, err)
		}
		if !ts.Equal(h[i].CreatedAt) {
			t.Fatalf("entry %d time = %v, want %v", i, ts, h[i].CreatedAt)
		}
		if e.Severity != h[i].Severity || e.Category != h[i].Category || e.Message != h[i].Text {
			t.Fatalf("entry %d = %+v, record %+v", i, e, h[i])
		}
	}
	if entries[0].Message != "GET 200" || len(entries[0].Args) != 2 || entries[0].Args[1] != "200" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Message != "Error: copy failed" || entries[1].Severity != Error {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteHistoryJSONLines(t *testing.T) {
	l, clk := newTestLog(t, Options{})
	l.Info("a", "x", 1)
	clk.Advance(time.Millisecond)
	l.ErrorFlash(0, "b", map[string]int{"k": 2})
	l.Debug("boot")

	var buf bytes.Buffer
	if err := l.WriteHistory(&buf); err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", n, buf.String())
	}

	h := l.History()
	dec := json.NewDecoder(&buf)
	var lines []map[string]any
	for {
		var line map[string]any
		err := dec.Decode(&line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("line %d: %v", len(lines), err)
		}
		lines = append(lines, line)
	}
	if len(lines) != len(h) {
		t.Fatalf("decoded %d lines, history has %d", len(lines), len(h))
	}
	for i, line := range lines {
		for _, key := range []string{"time", "seq", "severity", "category", "message", "args"} {
			if _, ok := line[key]; !ok {
				t.Fatalf("line %d missing %q: %v", i, key, line)
			}
		}
		ts, err := time.Parse(time.RFC3339Nano, line["time"].(string))
		if err != nil {
			t.Fatalf("line %d time: %v", i, err)
		}
		if !ts.Equal(h[i].CreatedAt) || line["seq"].(float64) != float64(h[i].Seq) {
			t.Fatalf("line %d = %v, record %+v", i, line, h[i])
		}
	}
	if lines[1]["severity"] != "error" || lines[1]["message"] != `{"k":2}` {
		t.Fatalf("second line = %v", lines[1])
	}
	args, ok := lines[2]["args"].([]any)
	if !ok || len(args) != 0 {
		t.Fatalf("args for a call without args = %#v, want []", lines[2]["args"])
	}

	errDisk := errors.New("disk full")
	if err := l.WriteHistory(failingWriter{err: errDisk}); !errors.Is(err, errDisk) {
		t.Fatalf("err = %v, want the writer's error", err)
	}
}

func TestSubscriberMayMutateLog(t *testing.T) {
	l, _ := newTestLog(t, Options{})

	var (
		seen    []string
		depth   int
		deepest int
	)
	l.OnVisibilityChange(func(m SlotMessage, ok bool) {
		depth++
		defer func() { depth-- }()
		deepest = max(deepest, depth)
		seen = append(seen, m.Text)
		if m.Text == "trigger" {
			l.Error("echo", "reply")
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Warn("a", "trigger")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Warn did not return; subscriber write blocked")
	}

	if fmt.Sprint(seen) != "[trigger reply]" {
		t.Fatalf("deliveries = %v", seen)
	}
	if deepest != 1 {
		t.Fatalf("nested delivery depth = %d, want 1", deepest)
	}
	if len(l.History()) != 2 || visibleText(l) != "reply" {
		t.Fatalf("history=%d visible=%q", len(l.History()), visibleText(l))
	}
}

func TestSinkReceivesCallsAndPanicsAreSwallowed(t *testing.T) {
	var calls []string
	sink := SinkFunc(func(sev Severity, category string, args []any) {
		calls = append(calls, fmt.Sprint(sev, " ", category, " ", args))
		panic("sink down")
	})
	l, _ := newTestLog(t, Options{Sink: sink})

	m := l.Warn("request", "slow", 3)
	if m.Text != "slow 3" {
		t.Fatalf("write result = %+v", m)
	}
	if len(calls) != 1 || calls[0] != "warn request [slow 3]" {
		t.Fatalf("sink calls = %v", calls)
	}
	if got := visibleText(l); got != "slow 3" {
		t.Fatalf("visible = %q after sink panic", got)
	}
}

func TestSubscriberPanicDoesNotBreakOthers(t *testing.T) {
	l, _ := newTestLog(t, Options{})
	l.OnVisibilityChange(func(SlotMessage, bool) { panic("render failed") })
	var got string
	l.OnVisibilityChange(func(m SlotMessage, _ bool) { got = m.Text })

	l.Info("request", "ok")
	if got != "ok" {
		t.Fatalf("second subscriber got %q, want ok", got)
	}
}

func TestMaxSlotsEvictsExpiredThenOldest(t *testing.T) {
	l, clk := newTestLog(t, Options{MaxSlots: 2})

	l.InfoFlash(10*time.Millisecond, "flash", "gone soon")
	clk.Advance(time.Millisecond)
	l.Info("old", "old")
	clk.Advance(20 * time.Millisecond)

	l.Info("new", "new")
	slots := l.Slots()
	if len(slots) != 2 || slots[0].Slot != "new" || slots[1].Slot != "old" {
		t.Fatalf("slots = %+v, want new+old (expired flash evicted)", slots)
	}

	clk.Advance(time.Millisecond)
	l.Info("newest", "newest")
	slots = l.Slots()
	if len(slots) != 2 || slots[0].Slot != "new" || slots[1].Slot != "newest" {
		t.Fatalf("slots = %+v, want new+newest (oldest evicted)", slots)
	}

	// Replacing an existing slot never evicts.
	l.Warn("new", "again")
	if n := len(l.Slots()); n != 2 {
		t.Fatalf("slots = %d, want 2", n)
	}
}

func TestHistorySince(t *testing.T) {
	l, _ := newTestLog(t, Options{Capacity: 3})
	for i := 0; i < 5; i++ {
		l.Debug("detector", i)
	}
	recs, last := l.HistorySince(1)
	if last != 5 {
		t.Fatalf("last seq = %d, want 5", last)
	}
	if len(recs) != 3 || recs[0].Seq != 3 {
		t.Fatalf("records = %+v, want seq 3..5", recs)
	}
}

func TestCloseStopsTimer(t *testing.T) {
	l, clk := newTestLog(t, Options{})
	var calls int
	l.OnVisibilityChange(func(SlotMessage, bool) { calls++ })
	l.InfoFlash(time.Second, "action", "x")
	l.Close()
	clk.Advance(2 * time.Second)
	if calls != 1 {
		t.Fatalf("visibility notifications = %d, want 1 (no expiry after Close)", calls)
	}
}
