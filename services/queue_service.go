package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clinic-waitlist/config"
	"clinic-waitlist/internal/status"
	"clinic-waitlist/models"
	"clinic-waitlist/monitoring"
	"clinic-waitlist/utils"

	"github.com/google/uuid"
)

// Dispatcher receives the side effects of a committed mutation:
// notification intents to deliver and realtime change publications.
// Implementations must not block and must tolerate their own failures;
// nothing they do can reach back into queue state.
type Dispatcher interface {
	DispatchIntents(intents []models.NotificationIntent)
	PublishChange(change models.ChangeType, entries []*models.QueueEntry)
}

// QueueService is the queue engine: it owns ordering and status
// transitions for the open day session. Mutations are serialized per
// session and persist through the store before they are visible or
// reported committed.
type QueueService struct {
	store      Store
	estimator  *Estimator
	trigger    *Trigger
	analytics  *Analytics
	dispatcher Dispatcher
	config     *config.Config
	logger     *slog.Logger

	// Now is the injectable wall clock.
	Now func() time.Time

	mu      sync.RWMutex // guards the session pointer swap at rollover
	session *DaySession
}

func NewQueueService(cfg *config.Config, store Store, estimator *Estimator, trigger *Trigger, analytics *Analytics, dispatcher Dispatcher, logger *slog.Logger) *QueueService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &QueueService{
		store:      store,
		estimator:  estimator,
		trigger:    trigger,
		analytics:  analytics,
		dispatcher: dispatcher,
		config:     cfg,
		logger:     logger,
		Now:        time.Now,
	}
	s.session = NewDaySession(time.Now().Format("2006-01-02"))
	return s
}

func (s *QueueService) currentSession() *DaySession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Restore reloads today's session from the store, e.g. after a restart.
func (s *QueueService) Restore(ctx context.Context) error {
	date := s.Now().Format("2006-01-02")
	entries, err := s.store.LoadSession(ctx, date)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	s.session = RestoreDaySession(date, entries)
	s.mu.Unlock()

	// Visits that finished before the restart still count: rebuild the
	// throughput and summary aggregates from them.
	s.analytics.Replay(entries)

	s.logger.Info("session restored", "date", date, "entries", len(entries))
	return nil
}

// CheckIn creates a new WAITING (or OUTSIDE) entry at the back of the
// queue. A patient with an active entry cannot check in again.
func (s *QueueService) CheckIn(ctx context.Context, patientRef string, mode models.CheckInMode, quotedMinutes *int, notes string) (*models.QueueEntry, error) {
	sess := s.currentSession()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return nil, status.ErrSessionClosed
	}
	if existing, ok := sess.byPatient[patientRef]; ok {
		return nil, fmt.Errorf("%w: entry %s", status.ErrDuplicateCheckIn, existing)
	}

	token, err := utils.GenerateToken(16)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	st := models.StatusWaiting
	if mode == models.ModeOutside {
		st = models.StatusOutside
	}

	entry := &models.QueueEntry{
		ID:                uuid.NewString(),
		PatientRef:        patientRef,
		Token:             token,
		Status:            st,
		Position:          len(sess.order) + 1,
		CheckedInAt:       s.Now(),
		QuotedWaitMinutes: quotedMinutes,
		Notes:             notes,
	}
	entry.EstimatedWaitSeconds = s.estimator.Estimate(entry.Position-1, quotedMinutes)
	entry.LastWaitUpdateSeconds = entry.EstimatedWaitSeconds

	intents := s.trigger.Evaluate(entry, models.ChangeCheckIn)

	if err := s.store.SaveEntries(ctx, sess.Date, entry); err != nil {
		return nil, fmt.Errorf("check in %s: %w", patientRef, err)
	}

	sess.commit([]*models.QueueEntry{entry}, append(sess.order, entry.ID))

	s.logger.Info("checked in", "entry", entry.ID, "patient", patientRef, "position", entry.Position)
	s.afterCommit(models.ChangeCheckIn, []*models.QueueEntry{entry.Clone()}, intents)
	return entry.Clone(), nil
}

// Reorder moves an active entry to newPos (1-based) and shifts the
// intervening entries by one, keeping positions contiguous.
func (s *QueueService) Reorder(ctx context.Context, entryID string, newPos int, actorID string) error {
	sess := s.currentSession()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return status.ErrSessionClosed
	}
	entry, ok := sess.entries[entryID]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrEntryNotFound, entryID)
	}
	if !entry.Status.IsActive() {
		return fmt.Errorf("%w: entry %s is %s", status.ErrInvalidPosition, entryID, entry.Status)
	}
	if newPos < 1 || newPos > len(sess.order) {
		return fmt.Errorf("%w: %d not in [1, %d]", status.ErrInvalidPosition, newPos, len(sess.order))
	}

	oldIdx := sess.indexOf(entryID)
	newIdx := newPos - 1
	if oldIdx == newIdx {
		return nil
	}

	newOrder := make([]string, 0, len(sess.order))
	newOrder = append(newOrder, sess.order[:oldIdx]...)
	newOrder = append(newOrder, sess.order[oldIdx+1:]...)
	newOrder = append(newOrder[:newIdx], append([]string{entryID}, newOrder[newIdx:]...)...)

	staged, intents := s.restage(sess, newOrder, models.ChangeReorder)
	for _, st := range staged {
		if st.ID == entryID {
			st.UpdatedBy = actorID
		}
	}

	if err := s.store.SaveEntries(ctx, sess.Date, staged...); err != nil {
		return fmt.Errorf("reorder %s: %w", entryID, err)
	}

	sess.commit(staged, newOrder)

	s.logger.Info("reordered", "entry", entryID, "position", newPos, "actor", actorID)
	s.afterCommit(models.ChangeReorder, cloneAll(staged), intents)
	return nil
}

// Advance transitions an entry along the state machine. Leaving the
// active set vacates the position and shifts everyone behind forward.
func (s *QueueService) Advance(ctx context.Context, entryID string, target models.Status, actorID string) (*models.QueueEntry, error) {
	sess := s.currentSession()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return nil, status.ErrSessionClosed
	}
	entry, ok := sess.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrEntryNotFound, entryID)
	}
	if !models.CanTransition(entry.Status, target, s.config.AllowCallShortcut) {
		return nil, fmt.Errorf("%w: %s -> %s", status.ErrInvalidTransition, entry.Status, target)
	}

	now := s.Now()
	moved := entry.Clone()
	moved.Status = target
	moved.UpdatedBy = actorID
	switch target {
	case models.StatusCalled:
		moved.CalledAt = &now
	case models.StatusInService:
		moved.ServiceStartedAt = &now
	case models.StatusCompleted, models.StatusNoShow, models.StatusCancelled:
		moved.CompletedAt = &now
	}

	staged := []*models.QueueEntry{moved}
	newOrder := sess.order
	var intents []models.NotificationIntent

	if entry.Status.IsActive() {
		// vacate the position
		idx := sess.indexOf(entryID)
		moved.Position = 0
		moved.EstimatedWaitSeconds = 0
		newOrder = append(append([]string{}, sess.order[:idx]...), sess.order[idx+1:]...)

		shifted, shiftedIntents := s.restage(sess, newOrder, models.ChangeEstimate)
		staged = append(staged, shifted...)
		intents = append(intents, shiftedIntents...)
	}

	intents = append(intents, s.trigger.Evaluate(moved, models.ChangeAdvance)...)

	if err := s.store.SaveEntries(ctx, sess.Date, staged...); err != nil {
		return nil, fmt.Errorf("advance %s: %w", entryID, err)
	}

	sess.commit(staged, newOrder)

	monitoring.TrackTransition(target)
	if target == models.StatusCompleted || target == models.StatusNoShow {
		s.analytics.RecordCompletion(moved.Clone())
		if moved.CalledAt != nil {
			monitoring.TrackActualWait(moved.CalledAt.Sub(moved.CheckedInAt))
		}
	}

	s.logger.Info("advanced", "entry", entryID, "status", target, "actor", actorID)
	s.afterCommit(models.ChangeAdvance, cloneAll(staged), intents)
	return moved.Clone(), nil
}

// MarkOutside flips an entry between WAITING and OUTSIDE without
// touching its position.
func (s *QueueService) MarkOutside(ctx context.Context, entryID string, outside bool) (*models.QueueEntry, error) {
	sess := s.currentSession()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return nil, status.ErrSessionClosed
	}
	entry, ok := sess.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrEntryNotFound, entryID)
	}
	if !entry.Status.IsActive() {
		return nil, fmt.Errorf("%w: %s -> outside toggle", status.ErrInvalidTransition, entry.Status)
	}

	target := models.StatusWaiting
	if outside {
		target = models.StatusOutside
	}
	if entry.Status == target {
		return entry.Clone(), nil
	}

	moved := entry.Clone()
	moved.Status = target

	if err := s.store.SaveEntries(ctx, sess.Date, moved); err != nil {
		return nil, fmt.Errorf("mark outside %s: %w", entryID, err)
	}

	sess.commit([]*models.QueueEntry{moved}, nil)

	s.afterCommit(models.ChangeOutside, []*models.QueueEntry{moved.Clone()}, nil)
	return moved.Clone(), nil
}

// restage rebuilds positions and estimates for every active entry whose
// placement changed under newOrder, returning staged clones plus any
// intents their re-evaluation produced. Caller holds the write lock.
func (s *QueueService) restage(sess *DaySession, newOrder []string, change models.ChangeType) ([]*models.QueueEntry, []models.NotificationIntent) {
	var staged []*models.QueueEntry
	var intents []models.NotificationIntent

	for i, id := range newOrder {
		current := sess.entries[id]
		pos := i + 1
		est := s.estimator.Estimate(pos-1, current.QuotedWaitMinutes)
		if current.Position == pos && current.EstimatedWaitSeconds == est {
			continue
		}
		clone := current.Clone()
		clone.Position = pos
		clone.EstimatedWaitSeconds = est
		intents = append(intents, s.trigger.Evaluate(clone, change)...)
		staged = append(staged, clone)
	}

	return staged, intents
}

// RefreshEstimates recomputes estimates for all active entries against
// the latest throughput stats and dispatches any resulting updates.
// Run periodically; a no-op when nothing drifted.
func (s *QueueService) RefreshEstimates(ctx context.Context) error {
	sess := s.currentSession()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return nil
	}

	staged, intents := s.restage(sess, sess.order, models.ChangeEstimate)
	if len(staged) == 0 {
		return nil
	}

	if err := s.store.SaveEntries(ctx, sess.Date, staged...); err != nil {
		return fmt.Errorf("refresh estimates: %w", err)
	}

	sess.commit(staged, nil)
	s.afterCommit(models.ChangeEstimate, cloneAll(staged), intents)
	return nil
}

// Snapshot returns the active entries ordered by position. Safe for
// concurrent display consumers; the copies share nothing with engine
// state.
func (s *QueueService) Snapshot() []*models.QueueEntry {
	sess := s.currentSession()
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	out := make([]*models.QueueEntry, 0, len(sess.order))
	for _, id := range sess.order {
		out = append(out, sess.entries[id].Clone())
	}
	return out
}

// All returns every entry of the open session, active first by
// position. Used by the staff dashboard.
func (s *QueueService) All() []*models.QueueEntry {
	sess := s.currentSession()
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	out := make([]*models.QueueEntry, 0, len(sess.entries))
	for _, id := range sess.order {
		out = append(out, sess.entries[id].Clone())
	}
	for _, entry := range sess.entries {
		if !entry.Status.IsActive() {
			out = append(out, entry.Clone())
		}
	}
	return out
}

// Entry returns one entry by ID.
func (s *QueueService) Entry(entryID string) (*models.QueueEntry, error) {
	sess := s.currentSession()
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	if entry, ok := sess.entries[entryID]; ok {
		return entry.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", status.ErrEntryNotFound, entryID)
}

// EntryByToken returns one entry by its patient-facing token.
func (s *QueueService) EntryByToken(token string) (*models.QueueEntry, error) {
	sess := s.currentSession()
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	for _, entry := range sess.entries {
		if entry.Token == token {
			return entry.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: token", status.ErrEntryNotFound)
}

// Date returns the open session's date.
func (s *QueueService) Date() string {
	return s.currentSession().Date
}

// Depths returns active entry counts by status, for metrics.
func (s *QueueService) Depths() map[models.Status]int {
	sess := s.currentSession()
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	depths := make(map[models.Status]int)
	for _, entry := range sess.entries {
		if !entry.Status.IsTerminal() {
			depths[entry.Status]++
		}
	}
	return depths
}

// CloseDay archives the open session and starts a fresh one dated
// today. Entries still open are cancelled on the way out; the archive
// is what analytics recomputes from.
func (s *QueueService) CloseDay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return status.ErrSessionClosed
	}

	now := s.Now()
	all := make([]*models.QueueEntry, 0, len(sess.entries))
	for _, entry := range sess.entries {
		clone := entry.Clone()
		if !clone.Status.IsTerminal() {
			clone.Status = models.StatusCancelled
			clone.CompletedAt = &now
			clone.Position = 0
		}
		all = append(all, clone)
	}

	if err := s.store.ArchiveSession(ctx, sess.Date, all); err != nil {
		return fmt.Errorf("close day %s: %w", sess.Date, err)
	}

	sess.closed = true
	s.session = NewDaySession(now.Format("2006-01-02"))

	s.logger.Info("day closed", "date", sess.Date, "entries", len(all))
	return nil
}

// StartDayRollover archives the session once the calendar day changes.
// Runs until ctx is cancelled.
func (s *QueueService) StartDayRollover(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.currentSession().Date == s.Now().Format("2006-01-02") {
				continue
			}
			if err := s.CloseDay(ctx); err != nil {
				s.logger.Error("day rollover failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *QueueService) afterCommit(change models.ChangeType, entries []*models.QueueEntry, intents []models.NotificationIntent) {
	if s.dispatcher == nil {
		return
	}
	// Side effects run outside the critical section; their failures are
	// the dispatcher's problem, never the queue's.
	go func() {
		if len(intents) > 0 {
			s.dispatcher.DispatchIntents(intents)
		}
		s.dispatcher.PublishChange(change, entries)
	}()
}

func cloneAll(entries []*models.QueueEntry) []*models.QueueEntry {
	out := make([]*models.QueueEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Clone())
	}
	return out
}
