package state

import (
	"time"

	"github.com/matheus3301/msgr/internal/chat"
)

// MergePolicy tunes how pending messages are carried across a refresh.
type MergePolicy struct {
	// Grace is how long a Sending entry may stay unmatched before it is
	// flagged Failed. Zero disables the check.
	Grace time.Duration
	// Skew bounds how much earlier than the local timestamp the server may
	// have stamped the confirmed copy of a pending message.
	Skew time.Duration
}

// mergeMessages builds the new local sequence for a conversation: the fetched
// history in server order, followed by every pending entry of prev that no
// fetched message confirms.
//
// A Sent entry that knows its server id is confirmed only by that id. Any other
// pending entry is confirmed by a fetched message from the same sender with the
// same body, stamped no earlier than CreatedAt-Skew, that was not already part
// of prev. Each fetched message confirms at most one pending entry. Failed
// entries are never confirmed here.
func mergeMessages(fetched, prev []chat.Message, now time.Time, p MergePolicy) []chat.Message {
	out := make([]chat.Message, 0, len(fetched)+2)
	byID := make(map[string]int, len(fetched))
	for i, m := range fetched {
		m.Delivery = chat.Confirmed
		m.TempID = ""
		out = append(out, m)
		byID[m.ID] = i
	}

	known := make(map[string]bool, len(prev))
	for _, m := range prev {
		if !m.Pending() {
			known[m.ID] = true
		}
	}

	consumed := make([]bool, len(fetched))
	for _, m := range prev {
		if !m.Pending() {
			continue
		}
		if m.Delivery == chat.Failed {
			out = append(out, m)
			continue
		}
		if m.Delivery == chat.Sent && m.ID != "" {
			if i, ok := byID[m.ID]; ok && !consumed[i] {
				consumed[i] = true
				continue
			}
		} else if i := matchByContent(fetched, consumed, known, m, p.Skew); i >= 0 {
			consumed[i] = true
			continue
		}
		if m.Delivery == chat.Sending && p.Grace > 0 && now.Sub(m.CreatedAt) > p.Grace {
			m.Delivery = chat.Failed
		}
		out = append(out, m)
	}
	return out
}

func matchByContent(fetched []chat.Message, consumed []bool, known map[string]bool, pending chat.Message, skew time.Duration) int {
	earliest := pending.CreatedAt.Add(-skew)
	for i, m := range fetched {
		if consumed[i] || known[m.ID] {
			continue
		}
		if m.SenderID != pending.SenderID || m.Body != pending.Body {
			continue
		}
		if m.CreatedAt.Before(earliest) {
			continue
		}
		return i
	}
	return -1
}
