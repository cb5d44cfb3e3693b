package app_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"eduslide-live/internal/app"
	"eduslide-live/internal/domain"
)

func deck() domain.Presentation {
	return domain.Presentation{
		ID:          "p1",
		Title:       "Fractions",
		SessionCode: "ABC123",
		Slides: []domain.Slide{
			{ID: "s1", PageNumber: 1, InteractiveType: domain.KindPoll},
			{ID: "s2", PageNumber: 2, InteractiveType: domain.KindQuiz},
			{ID: "s3", PageNumber: 3, InteractiveType: domain.KindWordCloud},
			{ID: "s4", PageNumber: 4, InteractiveType: domain.KindBubbleQuiz},
			{ID: "s5", PageNumber: 5},
		},
	}
}

func event(t *testing.T, typ string, payload interface{}) domain.Event {
	t.Helper()
	if payload == nil {
		return domain.Event{Type: typ}
	}
	if s, ok := payload.(string); ok {
		return domain.Event{Type: typ, Payload: json.RawMessage(s)}
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.Event{Type: typ, Payload: raw}
}

// feed maps and applies events in order, failing on anything that does not change the view.
func feed(t *testing.T, r *app.Reconciler, events ...domain.Event) {
	t.Helper()
	m := app.NewEventMapper()
	for _, ev := range events {
		cmd, err := m.Map(ev)
		require.NoError(t, err, ev.Type)
		require.NotNil(t, cmd, ev.Type)
		require.NoError(t, r.Apply(cmd), ev.Type)
	}
}

func pollStarted(t *testing.T, options ...string) domain.Event {
	return event(t, app.EventPollStarted, map[string]interface{}{"question": "Pick one", "options": options})
}

func slideChanged(t *testing.T, page int) domain.Event {
	return event(t, app.EventSlideChanged, map[string]int{"page_number": page})
}
