package status

import "time"

// Resolve picks the message a status bar should show at now.
//
// Expired transients are skipped. Any live transient outranks every
// persistent message and the most recently posted one wins. Otherwise the
// highest severity present wins, and within that severity the most recently
// posted message wins (PostedAt, then write order).
func Resolve(msgs []SlotMessage, now time.Time) (SlotMessage, bool) {
	var (
		transient, persistent         SlotMessage
		haveTransient, havePersistent bool
	)
	for _, m := range msgs {
		switch {
		case m.Expired(now):
			continue
		case m.Transient():
			if !haveTransient || m.newerThan(transient) {
				transient, haveTransient = m, true
			}
		default:
			if !havePersistent || outranks(m, persistent) {
				persistent, havePersistent = m, true
			}
		}
	}
	if haveTransient {
		return transient.clone(), true
	}
	if havePersistent {
		return persistent.clone(), true
	}
	return SlotMessage{}, false
}

func outranks(m, cur SlotMessage) bool {
	if m.Severity != cur.Severity {
		return m.Severity > cur.Severity
	}
	return m.newerThan(cur)
}
