package services

import (
	"sync"

	"clinic-waitlist/models"
)

// DaySession holds one operating day's queue: every entry checked in
// since open, the position order of the active ones, and the lock that
// serializes mutations. The engine owns exactly one open session at a
// time; closed sessions only exist in the archive.
type DaySession struct {
	Date string

	mu        sync.RWMutex
	entries   map[string]*models.QueueEntry
	order     []string          // active entry IDs, index = position-1
	byPatient map[string]string // patient ref -> active entry ID
	closed    bool
}

func NewDaySession(date string) *DaySession {
	return &DaySession{
		Date:      date,
		entries:   make(map[string]*models.QueueEntry),
		order:     make([]string, 0),
		byPatient: make(map[string]string),
	}
}

// RestoreDaySession rebuilds a session from persisted entries, e.g.
// after a restart. Entries must already carry consistent positions;
// the active order is derived from them.
func RestoreDaySession(date string, entries []*models.QueueEntry) *DaySession {
	sess := NewDaySession(date)
	for _, entry := range entries {
		sess.entries[entry.ID] = entry
		if !entry.Status.IsTerminal() {
			sess.byPatient[entry.PatientRef] = entry.ID
		}
		if entry.Status.IsActive() {
			sess.order = append(sess.order, entry.ID)
		}
	}
	// entries arrive position-sorted from the store; renumber anyway so
	// a gap in persisted data cannot survive the restore
	for i, id := range sess.order {
		sess.entries[id].Position = i + 1
	}
	return sess
}

// indexOf returns the order index of an active entry, or -1.
// Caller holds the lock.
func (sess *DaySession) indexOf(entryID string) int {
	for i, id := range sess.order {
		if id == entryID {
			return i
		}
	}
	return -1
}

// commit installs staged entry clones and, when newOrder is non-nil,
// replaces the active order. Caller holds the write lock and has already
// persisted the staged entries.
func (sess *DaySession) commit(staged []*models.QueueEntry, newOrder []string) {
	for _, entry := range staged {
		sess.entries[entry.ID] = entry
		if entry.Status.IsTerminal() {
			if sess.byPatient[entry.PatientRef] == entry.ID {
				delete(sess.byPatient, entry.PatientRef)
			}
		} else {
			sess.byPatient[entry.PatientRef] = entry.ID
		}
	}
	if newOrder != nil {
		sess.order = newOrder
	}
}
