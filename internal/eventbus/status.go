package eventbus

import "statusbar/internal/status"

// Event types published by Attach.
const (
	TypeHistory = "status.history"
	TypeVisible = "status.visible"
)

// HistoryChanged is the Data of a TypeHistory event. The full snapshot stays
// on the Log; consumers call HistorySince(LastSeq) when they need records.
type HistoryChanged struct {
	Len     int
	LastSeq uint64
}

// VisibleChanged is the Data of a TypeVisible event.
type VisibleChanged struct {
	Message status.SlotMessage
	Visible bool
}

// Attach republishes the log's subscription channels on bus. The returned
// func detaches both subscriptions.
func Attach(log *status.Log, bus Bus) (detach func()) {
	unHist := log.OnHistoryChange(func(records []status.HistoryRecord) {
		ev := HistoryChanged{Len: len(records)}
		if n := len(records); n > 0 {
			ev.LastSeq = records[n-1].Seq
		}
		bus.Publish(Event{Type: TypeHistory, Data: ev})
	})
	unVis := log.OnVisibilityChange(func(msg status.SlotMessage, ok bool) {
		bus.Publish(Event{Type: TypeVisible, Data: VisibleChanged{Message: msg, Visible: ok}})
	})
	return func() {
		unHist()
		unVis()
	}
}
