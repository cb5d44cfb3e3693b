package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduslide-live/internal/app"
	"eduslide-live/internal/domain"
)

func TestParseIntent(t *testing.T) {
	cases := []struct {
		line string
		want app.Intent
	}{
		{"vote Option A", app.Vote{Option: "Option A"}},
		{"answer 4", app.AnswerQuiz{Option: "4"}},
		{"word  sunny day", app.SubmitWord{Word: " sunny day"}},
		{"click 120 80.5", app.ClickBubble{X: 120, Y: 80.5}},
		{"resize 1280 720", app.ResizeCanvas{Width: 1280, Height: 720}},
		{"slide 3", app.ChangeSlide{Page: 3}},
		{"start bubble_quiz", app.LaunchActivity{Kind: domain.KindBubbleQuiz}},
		{"begin", app.StartPresentation{}},
		{"clear", app.WipeCanvas{}},
		{"hide", app.HideOverlay{}},
		{"pick", app.PickRandom{}},
		{"END", app.EndSession{}},
		{"draw start pen #ff0000 4 10 20 30 40", app.Draw{Segment: app.StrokeSegment{
			Phase:  app.DrawStart,
			Tool:   domain.ToolPen,
			Color:  "#ff0000",
			Width:  4,
			Points: []domain.Point{{X: 10, Y: 20}, {X: 30, Y: 40}},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := parseIntent(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseIntentErrors(t *testing.T) {
	for _, line := range []string{
		"dance",
		"click 1",
		"click a b",
		"slide two",
		"start lecture",
		"draw start crayon red 1 0 0",
		"draw wiggle pen red 1 0 0",
		"draw start pen red 1 0",
	} {
		_, err := parseIntent(line)
		assert.Error(t, err, line)
	}

	_, err := parseIntent("leave")
	assert.True(t, errors.Is(err, errLeave))
}
