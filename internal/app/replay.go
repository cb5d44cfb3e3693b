package app

import "eduslide-live/internal/domain"

// Skipped describes a replayed event that left the view unchanged.
type Skipped struct {
	Index int
	Type  string
	Err   error
}

// Replay folds a recorded event log into a fresh view of presentation.
// Unknown event types are skipped with a nil Err.
func Replay(presentation domain.Presentation, events []domain.Event) (View, []Skipped) {
	mapper := NewEventMapper()
	rec := NewReconciler(presentation)

	var skipped []Skipped
	for i, ev := range events {
		cmd, err := mapper.Map(ev)
		if err == nil && cmd != nil {
			err = rec.Apply(cmd)
			if err == nil {
				continue
			}
		}
		skipped = append(skipped, Skipped{Index: i, Type: ev.Type, Err: err})
	}
	return rec.View(), skipped
}
