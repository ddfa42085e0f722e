package orchestrator

import (
	"fmt"

	"github.com/teemow/calsheet/internal/timesheet"
)

// startBatch retags every loaded event named name with tag. All matching IDs
// are marked pending before any PatchColor intent is returned. Zero matches
// is a no-op.
func (m *Machine) startBatch(name, tag string) ([]Intent, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	matches := timesheet.FilterByName(m.events, name)
	if len(matches) == 0 {
		return nil, nil
	}
	if m.calendarID == "" {
		return nil, ErrNoCalendar
	}

	batch := &BatchProgress{
		ID:       m.cfg.NewBatchID(),
		Name:     name,
		ColorTag: tag,
		Total:    len(matches),
	}
	for _, ev := range matches {
		m.pending[ev.ID]++
	}

	intents := make([]Intent, 0, len(matches))
	for _, ev := range matches {
		intents = append(intents, PatchColor{
			CalendarID: m.calendarID,
			EventID:    ev.ID,
			ColorTag:   tag,
			BatchID:    batch.ID,
		})
	}

	m.batches[batch.ID] = batch
	m.lastBatch = batch
	return intents, nil
}

// onColorPatched settles one mutation, whatever its outcome. The
// acknowledgement that empties the pending set triggers the refresh.
func (m *Machine) onColorPatched(msg ColorPatched) []Intent {
	var intents []Intent

	if batch, ok := m.batches[msg.BatchID]; ok {
		batch.Acknowledged++
		if msg.Err != nil {
			batch.Failed = append(batch.Failed, msg.EventID)
		}
		if batch.Done() {
			delete(m.batches, msg.BatchID)
		}
	}

	if msg.Err != nil {
		m.notice = fmt.Errorf("failed to update color of event %s: %w", msg.EventID, msg.Err)
		if timesheet.IsAuthFailure(msg.Err) {
			intents = append(intents, m.beginAuth()...)
		}
	}

	count, ok := m.pending[msg.EventID]
	if !ok {
		return intents
	}
	if count > 1 {
		m.pending[msg.EventID] = count - 1
		return intents
	}
	delete(m.pending, msg.EventID)

	if len(m.pending) == 0 {
		intents = append(intents, m.refresh(TriggerMutation)...)
	}
	return intents
}
