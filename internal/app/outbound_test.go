package app_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduslide-live/internal/app"
	"eduslide-live/internal/domain"
)

var (
	student = app.Identity{SessionCode: "ABC123", Name: "ana", SID: "sid-1", Role: domain.RoleStudent}
	teacher = app.Identity{SessionCode: "ABC123", Name: "ms k", SID: "sid-t", Role: domain.RoleTeacher}
)

func viewAfter(t *testing.T, events ...domain.Event) app.View {
	t.Helper()
	r := app.NewReconciler(deck())
	feed(t, r, events...)
	return r.View()
}

func payloadJSON(t *testing.T, msg domain.Outbound) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var out struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, msg.Type, out.Type)
	return out.Payload
}

func TestVoteShapesPayload(t *testing.T) {
	b := app.NewCommandBuilder(student, deck())
	v := viewAfter(t, slideChanged(t, 1), pollStarted(t, "A", "B"))

	msg, err := b.Vote(v, "B")
	require.NoError(t, err)
	assert.Equal(t, app.EmitSubmitVote, msg.Type)
	assert.Equal(t, map[string]interface{}{
		"session_code": "ABC123",
		"slide_id":     "s1",
		"option":       "B",
		"name":         "ana",
		"sid":          "sid-1",
	}, payloadJSON(t, msg))
}

func TestSingleShotRejections(t *testing.T) {
	b := app.NewCommandBuilder(student, deck())
	poll := viewAfter(t, slideChanged(t, 1), pollStarted(t, "A", "B"))

	_, err := b.Vote(poll, "C")
	assert.ErrorIs(t, err, domain.ErrUnknownOption)

	_, err = b.AnswerQuiz(poll, "A")
	assert.ErrorIs(t, err, domain.ErrWrongActivity)

	idle := viewAfter(t, slideChanged(t, 1))
	_, err = b.Vote(idle, "A")
	assert.ErrorIs(t, err, domain.ErrNoActiveActivity)

	submitted := poll
	submitted.HasSubmitted = true
	_, err = b.Vote(submitted, "A")
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
}

func TestSubmitWord(t *testing.T) {
	b := app.NewCommandBuilder(student, deck())
	v := viewAfter(t, slideChanged(t, 3), event(t, app.EventWordCloudStarted, map[string]string{"question": "Mood?"}))

	for _, blank := range []string{"", "   ", "\t\n"} {
		_, err := b.SubmitWord(v, blank)
		assert.ErrorIs(t, err, domain.ErrEmptyWord)
	}

	msg, err := b.SubmitWord(v, " Happy ")
	require.NoError(t, err)
	assert.Equal(t, " Happy ", payloadJSON(t, msg)["word"])

	v.HasSubmitted = true
	_, err = b.SubmitWord(v, "")
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
}

func TestAnswerQuiz(t *testing.T) {
	b := app.NewCommandBuilder(student, deck())
	v := viewAfter(t, slideChanged(t, 2), event(t, app.EventQuizStarted, map[string]interface{}{"question": "2+2?", "options": []string{"3", "4"}}))

	msg, err := b.AnswerQuiz(v, "4")
	require.NoError(t, err)
	assert.Equal(t, app.EmitSubmitQuizAnswer, msg.Type)
	p := payloadJSON(t, msg)
	assert.Equal(t, "4", p["answer"])
	assert.Equal(t, "s2", p["slide_id"])
}

func TestClickBubbleNormalizes(t *testing.T) {
	b := app.NewCommandBuilder(student, deck())
	v := viewAfter(t, slideChanged(t, 4), event(t, app.EventBubbleQuizStarted, `{"correct_areas":[{"x":0.5,"y":0.5}]}`))

	_, err := b.ClickBubble(v, 10, 10)
	assert.ErrorIs(t, err, domain.ErrCanvasUnmeasured)

	v.Canvas = domain.Canvas{Width: 800, Height: 400}
	_, err = b.ClickBubble(v, 801, 10)
	assert.ErrorIs(t, err, domain.ErrOutsideCanvas)

	msg, err := b.ClickBubble(v, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"x": 0.25, "y": 0.25}, payloadJSON(t, msg)["point"])
}

func TestDrawIsNotSingleShot(t *testing.T) {
	b := app.NewCommandBuilder(student, deck())
	v := viewAfter(t, slideChanged(t, 5), event(t, app.EventDrawingStarted, `{"slide_id":"s5"}`))
	v.Canvas = domain.Canvas{Width: 1000, Height: 500}
	v.HasSubmitted = true

	seg := app.StrokeSegment{Phase: app.DrawStart, Color: "#f00", Width: 5, Points: []domain.Point{{X: 100, Y: 50}, {X: 500, Y: 250}}}
	for i := 0; i < 3; i++ {
		msg, err := b.Draw(v, seg)
		require.NoError(t, err)
		assert.Equal(t, app.EmitDrawingEvent, msg.Type)
	}

	msg, _ := b.Draw(v, seg)
	data := payloadJSON(t, msg)["drawData"].(map[string]interface{})
	assert.Equal(t, "start", data["type"])
	assert.Equal(t, "s5", data["slide_id"])
	line := data["line"].(map[string]interface{})
	assert.Equal(t, "pen", line["tool"])
	assert.Equal(t, 0.005, line["strokeWidth"])
	assert.Equal(t, []interface{}{0.1, 0.1, 0.5, 0.5}, line["points"])

	v.Canvas = domain.Canvas{}
	_, err := b.Draw(v, seg)
	assert.ErrorIs(t, err, domain.ErrCanvasUnmeasured)
}

func TestDrawNeedsRunningDrawing(t *testing.T) {
	b := app.NewCommandBuilder(student, deck())
	seg := app.StrokeSegment{Phase: app.DrawStart, Width: 2, Points: []domain.Point{{X: 10, Y: 10}}}

	idle := viewAfter(t, slideChanged(t, 1))
	idle.Canvas = domain.Canvas{Width: 800, Height: 400}
	_, err := b.Draw(idle, seg)
	assert.ErrorIs(t, err, domain.ErrNoActiveActivity)

	poll := viewAfter(t, slideChanged(t, 1), pollStarted(t, "A", "B"))
	poll.Canvas = domain.Canvas{Width: 800, Height: 400}
	_, err = b.Draw(poll, seg)
	assert.ErrorIs(t, err, domain.ErrWrongActivity)
}

func TestJoinByRole(t *testing.T) {
	msg := app.NewCommandBuilder(student, deck()).Join()
	assert.Equal(t, app.EmitJoinSession, msg.Type)
	assert.Equal(t, map[string]interface{}{"session_code": "ABC123", "name": "ana"}, payloadJSON(t, msg))

	msg = app.NewCommandBuilder(teacher, deck()).Join()
	assert.Equal(t, app.EmitTeacherJoin, msg.Type)
	assert.Equal(t, map[string]interface{}{"session_code": "ABC123"}, payloadJSON(t, msg))
}

func TestTeacherOnlyIntents(t *testing.T) {
	v := viewAfter(t, slideChanged(t, 1))
	b := app.NewCommandBuilder(student, deck())

	_, err := b.ChangeSlide(v, 2)
	assert.ErrorIs(t, err, domain.ErrNotTeacher)
	_, err = b.EndSession(v)
	assert.ErrorIs(t, err, domain.ErrNotTeacher)
	_, err = b.StartActivity(v, domain.KindPoll)
	assert.ErrorIs(t, err, domain.ErrNotTeacher)
}

func TestTeacherIntents(t *testing.T) {
	b := app.NewCommandBuilder(teacher, deck())
	v := viewAfter(t, slideChanged(t, 1))

	msg, err := b.ChangeSlide(v, 5)
	require.NoError(t, err)
	assert.Equal(t, float64(5), payloadJSON(t, msg)["page_number"])

	for _, page := range []int{0, 6} {
		_, err = b.ChangeSlide(v, page)
		assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
	}

	msg, err = b.StartActivity(v, domain.KindPoll)
	require.NoError(t, err)
	assert.Equal(t, "start_poll", msg.Type)
	assert.Equal(t, "s1", payloadJSON(t, msg)["slide_id"])

	_, err = b.StartActivity(v, domain.KindQuiz)
	assert.ErrorIs(t, err, domain.ErrWrongActivity)

	msg, err = b.StartActivity(v, domain.KindDrawing)
	require.NoError(t, err)
	assert.Equal(t, "start_drawing", msg.Type)

	msg, err = b.StartPresentation(v)
	require.NoError(t, err)
	assert.Equal(t, app.EmitStartPresentation, msg.Type)

	msg, err = b.PickStudent(v)
	require.NoError(t, err)
	assert.Equal(t, app.EmitPickStudent, msg.Type)

	_, err = b.ClearCanvas(v)
	assert.ErrorIs(t, err, domain.ErrCanvasUnmeasured)
	v.Canvas = domain.Canvas{Width: 10, Height: 10}
	msg, err = b.ClearCanvas(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"session_code": "ABC123", "slide_id": "s1"}, payloadJSON(t, msg))

	lobby := viewAfter(t)
	_, err = b.StartActivity(lobby, domain.KindPoll)
	assert.ErrorIs(t, err, domain.ErrSlideUnknown)
}

func TestIntentsAfterSessionEnded(t *testing.T) {
	v := viewAfter(t, slideChanged(t, 1), pollStarted(t, "A"), event(t, app.EventSessionEnded, nil))

	_, err := app.NewCommandBuilder(student, deck()).Vote(v, "A")
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
	_, err = app.NewCommandBuilder(teacher, deck()).ChangeSlide(v, 2)
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}
