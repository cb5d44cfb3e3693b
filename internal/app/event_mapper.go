package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"eduslide-live/internal/aggregate"
	"eduslide-live/internal/domain"
	"eduslide-live/internal/validation"
)

// Inbound event types.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"

	EventSlideChanged      = "slide_changed"
	EventPollStarted       = "poll_started"
	EventQuizStarted       = "quiz_started"
	EventWordCloudStarted  = "wordcloud_started"
	EventBubbleQuizStarted = "bubble_quiz_started"
	EventDrawingStarted    = "drawing_started"
	EventDrawingHidden     = "drawing_hidden"
	EventUpdateDrawing     = "update_drawing"
	EventCanvasCleared     = "canvas_cleared"
	EventPollResults       = "update_poll_results"
	EventWordCloudResults  = "update_wordcloud_results"
	EventBubbleQuizResults = "update_bubble_quiz_results"
	EventQuizFeedback      = "quiz_feedback"
	EventLeaderboard       = "update_leaderboard"
	EventStudentPicked     = "student_picked"
	EventParticipantList   = "update_participant_list"
	EventJoinSuccess       = "join_success"
	EventSessionEnded      = "session_ended"
)

const (
	defaultSessionEndedText = "The session has ended."
	defaultBubbleRadius     = 0.1
)

type slideChangedPayload struct {
	PageNumber *int `json:"page_number" validate:"required,gte=0"`
}

type choicePayload struct {
	Question string   `json:"question" validate:"notblank"`
	Options  []string `json:"options" validate:"required,min=1,dive,notblank"`
	SlideID  string   `json:"slide_id"`
}

type wordCloudPayload struct {
	Question string `json:"question" validate:"notblank"`
	SlideID  string `json:"slide_id"`
}

type bubbleStartPayload struct {
	CorrectAreas []json.RawMessage `json:"correct_areas" validate:"required,min=1"`
	SlideID      string            `json:"slide_id"`
}

type areaPayload struct {
	X      *float64 `json:"x" validate:"required,gte=0,lte=1"`
	Y      *float64 `json:"y" validate:"required,gte=0,lte=1"`
	Radius *float64 `json:"radius" validate:"omitempty,gt=0,lte=1"`
}

type drawingStartedPayload struct {
	Lines   []domain.Stroke `json:"lines"`
	SlideID string          `json:"slide_id"`
}

type drawDataPayload struct {
	Type    string         `json:"type" validate:"required,oneof=start draw end"`
	Line    *domain.Stroke `json:"line" validate:"required"`
	SlideID string         `json:"slide_id" validate:"required"`
}

type updateDrawingPayload struct {
	DrawData *drawDataPayload `json:"drawData" validate:"required"`
}

type canvasClearedPayload struct {
	SlideID string `json:"slide_id" validate:"required"`
}

type pointPayload struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type clickPayload struct {
	Point     *pointPayload `json:"point" validate:"required"`
	IsCorrect bool          `json:"is_correct"`
	Name      string        `json:"name"`
}

type bubbleResultsPayload struct {
	Clicks  []clickPayload `json:"clicks" validate:"required,dive"`
	SlideID string         `json:"slide_id"`
}

type quizFeedbackPayload struct {
	Correct *bool  `json:"correct" validate:"required"`
	SlideID string `json:"slide_id"`
}

type leaderboardRow struct {
	StudentName string `json:"student_name" validate:"required"`
	Score       int    `json:"score"`
}

type studentPickedPayload struct {
	Winner       string   `json:"winner" validate:"required"`
	Participants []string `json:"participants"`
}

type participantListPayload struct {
	Participants []domain.Participant `json:"participants" validate:"required"`
}

type messagePayload struct {
	Message string `json:"message"`
}

// EventMapper translates inbound events into Reconciler commands.
// It keeps no state between events.
type EventMapper struct{}

func NewEventMapper() *EventMapper {
	return &EventMapper{}
}

// Map returns the command for ev. Unknown event types yield (nil, nil);
// payloads that fail to decode or validate yield an error wrapping domain.ErrMalformedEvent.
func (m *EventMapper) Map(ev domain.Event) (Command, error) {
	switch ev.Type {
	case EventConnect:
		return SetConnection{Status: domain.StatusConnected}, nil
	case EventDisconnect:
		return SetConnection{Status: domain.StatusDisconnected}, nil

	case EventSlideChanged:
		var p slideChangedPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		return ResetForSlide{Page: *p.PageNumber}, nil

	case EventPollStarted, EventQuizStarted:
		var p choicePayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		if ev.Type == EventPollStarted {
			return StartActivity{Activity: &domain.Poll{Slide: p.SlideID, Question: p.Question, Options: p.Options}}, nil
		}
		return StartActivity{Activity: &domain.Quiz{Slide: p.SlideID, Question: p.Question, Options: p.Options}}, nil

	case EventWordCloudStarted:
		var p wordCloudPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		return StartActivity{Activity: &domain.WordCloud{Slide: p.SlideID, Question: p.Question}}, nil

	case EventBubbleQuizStarted:
		var p bubbleStartPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		areas, err := decodeAreas(p.CorrectAreas)
		if err != nil {
			return nil, malformed(ev.Type, err)
		}
		return StartActivity{Activity: &domain.BubbleQuiz{Slide: p.SlideID, CorrectAreas: areas}}, nil

	case EventDrawingStarted:
		var p drawingStartedPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		if err := checkStrokes(p.Lines...); err != nil {
			return nil, malformed(ev.Type, err)
		}
		return StartActivity{Activity: &domain.Drawing{Slide: p.SlideID, Strokes: p.Lines}}, nil

	case EventDrawingHidden:
		return HideDrawing{}, nil

	case EventUpdateDrawing:
		var p updateDrawingPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		if err := checkStrokes(*p.DrawData.Line); err != nil {
			return nil, malformed(ev.Type, err)
		}
		return UpdateDrawing{
			Phase:   DrawPhase(p.DrawData.Type),
			Stroke:  *p.DrawData.Line,
			SlideID: p.DrawData.SlideID,
		}, nil

	case EventCanvasCleared:
		var p canvasClearedPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		return ClearCanvas{SlideID: p.SlideID}, nil

	case EventPollResults, EventWordCloudResults:
		counts, slideID, err := decodeCounts(ev.Payload)
		if err != nil {
			return nil, malformed(ev.Type, err)
		}
		kind := domain.KindPoll
		if ev.Type == EventWordCloudResults {
			kind = domain.KindWordCloud
		}
		return ReplaceAggregate{Kind: kind, SlideID: slideID, Counts: counts}, nil

	case EventBubbleQuizResults:
		var p bubbleResultsPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		clicks := make([]domain.Click, 0, len(p.Clicks))
		for _, c := range p.Clicks {
			clicks = append(clicks, domain.Click{
				Point:     domain.Point{X: *c.Point.X, Y: *c.Point.Y},
				IsCorrect: c.IsCorrect,
				Name:      c.Name,
			})
		}
		return ReplaceAggregate{Kind: domain.KindBubbleQuiz, SlideID: p.SlideID, Clicks: clicks}, nil

	case EventQuizFeedback:
		var p quizFeedbackPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		return SetLocalFeedback{Correct: *p.Correct, SlideID: p.SlideID}, nil

	case EventLeaderboard:
		var rows []leaderboardRow
		if err := json.Unmarshal(payloadOr(ev.Payload, "[]"), &rows); err != nil {
			return nil, malformed(ev.Type, err)
		}
		entries := make([]domain.LeaderboardEntry, 0, len(rows))
		for i := range rows {
			// An unnamed row is dropped on its own; the rest of the board still applies.
			if err := validation.Validate.Struct(&rows[i]); err != nil {
				continue
			}
			entries = append(entries, domain.LeaderboardEntry{StudentName: rows[i].StudentName, Score: rows[i].Score})
		}
		return SetLeaderboard{Entries: entries}, nil

	case EventStudentPicked:
		var p studentPickedPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		return PickStudent{Picked: domain.PickedStudent{Winner: p.Winner, Participants: p.Participants}}, nil

	case EventParticipantList:
		var p participantListPayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		return ReplaceRoster{Participants: p.Participants}, nil

	case EventJoinSuccess:
		var p messagePayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		return AcknowledgeJoin{Message: p.Message}, nil

	case EventSessionEnded:
		var p messagePayload
		if err := decode(ev, &p); err != nil {
			return nil, err
		}
		if p.Message == "" {
			p.Message = defaultSessionEndedText
		}
		return TerminateSession{Message: p.Message}, nil
	}
	return nil, nil
}

func malformed(eventType string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrMalformedEvent, eventType, err)
}

func payloadOr(raw json.RawMessage, fallback string) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []byte(fallback)
	}
	return trimmed
}

// decode unmarshals the payload into dst and validates it.
func decode(ev domain.Event, dst interface{}) error {
	if err := json.Unmarshal(payloadOr(ev.Payload, "{}"), dst); err != nil {
		return malformed(ev.Type, err)
	}
	if err := validation.Validate.Struct(dst); err != nil {
		return malformed(ev.Type, err)
	}
	return nil
}

// decodeAreas accepts areas as objects or as JSON-encoded strings of objects.
func decodeAreas(raws []json.RawMessage) ([]domain.Area, error) {
	areas := make([]domain.Area, 0, len(raws))
	for i, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '"' {
			var inner string
			if err := json.Unmarshal(raw, &inner); err != nil {
				return nil, fmt.Errorf("area %d: %w", i, err)
			}
			raw = []byte(inner)
		}
		var p areaPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("area %d: %w", i, err)
		}
		if err := validation.Validate.Struct(&p); err != nil {
			return nil, fmt.Errorf("area %d: %w", i, err)
		}
		radius := defaultBubbleRadius
		if p.Radius != nil {
			radius = *p.Radius
		}
		areas = append(areas, domain.Area{X: *p.X, Y: *p.Y, Radius: radius})
	}
	return areas, nil
}

func wrappedResults(fields []field) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.key != "results" {
			continue
		}
		v := bytes.TrimSpace(f.value)
		if len(v) > 0 && (v[0] == '{' || v[0] == '[') {
			return v, true
		}
	}
	return nil, false
}

func checkStrokes(strokes ...domain.Stroke) error {
	for i, s := range strokes {
		if s.StrokeWidth < 0 || math.IsNaN(s.StrokeWidth) {
			return fmt.Errorf("stroke %d: negative width", i)
		}
	}
	return nil
}

// decodeCounts reads a results payload: a label->count object, a list of raw
// submissions, or either of those wrapped as {"results": ..., "slide_id": ...}.
// Counts are plain numbers, so an object is only a wrapper when its "results"
// value is itself an object or a list.
func decodeCounts(raw json.RawMessage) (aggregate.Counts, string, error) {
	body := payloadOr(raw, "{}")
	switch body[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, "", err
		}
		return aggregate.Tally(items), "", nil
	case '{':
	default:
		return nil, "", fmt.Errorf("results must be an object or a list")
	}

	fields, err := orderedFields(body)
	if err != nil {
		return nil, "", err
	}
	if results, ok := wrappedResults(fields); ok {
		var slideID string
		for _, f := range fields {
			if f.key != "slide_id" {
				continue
			}
			if err := json.Unmarshal(f.value, &slideID); err != nil {
				return nil, "", fmt.Errorf("slide_id: %w", err)
			}
		}
		counts, _, err := decodeCounts(results)
		return counts, slideID, err
	}

	counts := make(aggregate.Counts, 0, len(fields))
	for _, f := range fields {
		var n int
		if err := json.Unmarshal(f.value, &n); err != nil {
			return nil, "", fmt.Errorf("count for %q: %w", f.key, err)
		}
		if n < 0 {
			return nil, "", fmt.Errorf("count for %q is negative", f.key)
		}
		counts = append(counts, aggregate.Count{Label: f.key, Count: n})
	}
	return counts, "", nil
}

type field struct {
	key   string
	value json.RawMessage
}

// orderedFields decodes a JSON object keeping its key order.
func orderedFields(body []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}
