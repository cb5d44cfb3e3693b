package app

import (
	"strings"

	"eduslide-live/internal/domain"
)

// Outbound event types.
const (
	EmitJoinSession       = "join_session"
	EmitTeacherJoin       = "teacher_join"
	EmitSubmitVote        = "submit_vote"
	EmitSubmitQuizAnswer  = "submit_quiz_answer"
	EmitSubmitWord        = "submit_word"
	EmitSubmitBubbleClick = "submit_bubble_click"
	EmitDrawingEvent      = "drawing_event"
	EmitClearCanvas       = "clear_canvas"
	EmitStartPresentation = "start_presentation"
	EmitChangeSlide       = "change_slide"
	EmitHideDrawing       = "hide_drawing"
	EmitEndSession        = "end_session"
	EmitPickStudent       = "pick_student"
)

var startEvents = map[domain.ActivityKind]string{
	domain.KindPoll:       "start_poll",
	domain.KindQuiz:       "start_quiz",
	domain.KindWordCloud:  "start_wordcloud",
	domain.KindBubbleQuiz: "start_bubble_quiz",
	domain.KindDrawing:    "start_drawing",
}

// Identity is who this client is within a session.
type Identity struct {
	SessionCode string
	Name        string
	SID         string
	Role        domain.Role
}

type sessionPayload struct {
	SessionCode string `json:"session_code"`
}

type joinPayload struct {
	SessionCode string `json:"session_code"`
	Name        string `json:"name"`
}

type slidePayload struct {
	SessionCode string `json:"session_code"`
	SlideID     string `json:"slide_id"`
}

type votePayload struct {
	SessionCode string `json:"session_code"`
	SlideID     string `json:"slide_id"`
	Option      string `json:"option"`
	Name        string `json:"name"`
	SID         string `json:"sid"`
}

type quizAnswerPayload struct {
	SessionCode string `json:"session_code"`
	SlideID     string `json:"slide_id"`
	Answer      string `json:"answer"`
	Name        string `json:"name"`
	SID         string `json:"sid"`
}

type wordPayload struct {
	SessionCode string `json:"session_code"`
	SlideID     string `json:"slide_id"`
	Word        string `json:"word"`
	Name        string `json:"name"`
	SID         string `json:"sid"`
}

type bubbleClickPayload struct {
	SessionCode string       `json:"session_code"`
	SlideID     string       `json:"slide_id"`
	Name        string       `json:"name"`
	SID         string       `json:"sid"`
	Point       domain.Point `json:"point"`
}

type drawData struct {
	Type    DrawPhase     `json:"type"`
	Line    domain.Stroke `json:"line"`
	SlideID string        `json:"slide_id"`
}

type drawingEventPayload struct {
	SessionCode string   `json:"session_code"`
	DrawData    drawData `json:"drawData"`
}

type changeSlidePayload struct {
	SessionCode string `json:"session_code"`
	PageNumber  int    `json:"page_number"`
}

// StrokeSegment is a pointer gesture in canvas pixels.
type StrokeSegment struct {
	Phase  DrawPhase
	Tool   domain.Tool
	Color  string
	Width  float64
	Points []domain.Point
}

// CommandBuilder validates local intents against a View and shapes them into
// outbound events. It never mutates state; callers apply MarkSubmitted themselves.
type CommandBuilder struct {
	id           Identity
	presentation domain.Presentation
}

func NewCommandBuilder(id Identity, presentation domain.Presentation) *CommandBuilder {
	return &CommandBuilder{id: id, presentation: presentation}
}

// Join announces this client to the session.
func (b *CommandBuilder) Join() domain.Outbound {
	if b.id.Role == domain.RoleTeacher {
		return domain.Outbound{Type: EmitTeacherJoin, Payload: sessionPayload{SessionCode: b.id.SessionCode}}
	}
	return domain.Outbound{Type: EmitJoinSession, Payload: joinPayload{SessionCode: b.id.SessionCode, Name: b.id.Name}}
}

// Vote casts a poll vote.
func (b *CommandBuilder) Vote(v View, option string) (domain.Outbound, error) {
	act, err := b.singleShot(v, domain.KindPoll)
	if err != nil {
		return domain.Outbound{}, err
	}
	if !offers(act, option) {
		return domain.Outbound{}, domain.ErrUnknownOption
	}
	return domain.Outbound{Type: EmitSubmitVote, Payload: votePayload{
		SessionCode: b.id.SessionCode,
		SlideID:     act.SlideID(),
		Option:      option,
		Name:        b.id.Name,
		SID:         b.id.SID,
	}}, nil
}

// AnswerQuiz submits a quiz answer.
func (b *CommandBuilder) AnswerQuiz(v View, option string) (domain.Outbound, error) {
	act, err := b.singleShot(v, domain.KindQuiz)
	if err != nil {
		return domain.Outbound{}, err
	}
	if !offers(act, option) {
		return domain.Outbound{}, domain.ErrUnknownOption
	}
	return domain.Outbound{Type: EmitSubmitQuizAnswer, Payload: quizAnswerPayload{
		SessionCode: b.id.SessionCode,
		SlideID:     act.SlideID(),
		Answer:      option,
		Name:        b.id.Name,
		SID:         b.id.SID,
	}}, nil
}

// SubmitWord sends a word cloud entry exactly as typed.
func (b *CommandBuilder) SubmitWord(v View, word string) (domain.Outbound, error) {
	act, err := b.singleShot(v, domain.KindWordCloud)
	if err != nil {
		return domain.Outbound{}, err
	}
	if strings.TrimSpace(word) == "" {
		return domain.Outbound{}, domain.ErrEmptyWord
	}
	return domain.Outbound{Type: EmitSubmitWord, Payload: wordPayload{
		SessionCode: b.id.SessionCode,
		SlideID:     act.SlideID(),
		Word:        word,
		Name:        b.id.Name,
		SID:         b.id.SID,
	}}, nil
}

// ClickBubble answers a bubble quiz with a pointer position in canvas pixels.
// The position is normalized by the canvas size at the time of the click.
func (b *CommandBuilder) ClickBubble(v View, x, y float64) (domain.Outbound, error) {
	act, err := b.singleShot(v, domain.KindBubbleQuiz)
	if err != nil {
		return domain.Outbound{}, err
	}
	point, err := normalize(v.Canvas, domain.Point{X: x, Y: y})
	if err != nil {
		return domain.Outbound{}, err
	}
	return domain.Outbound{Type: EmitSubmitBubbleClick, Payload: bubbleClickPayload{
		SessionCode: b.id.SessionCode,
		SlideID:     act.SlideID(),
		Name:        b.id.Name,
		SID:         b.id.SID,
		Point:       point,
	}}, nil
}

// Draw shares a stroke segment while a drawing runs. Drawing is not single-shot.
func (b *CommandBuilder) Draw(v View, seg StrokeSegment) (domain.Outbound, error) {
	if err := onCanvas(v); err != nil {
		return domain.Outbound{}, err
	}
	switch v.Kind {
	case domain.KindDrawing:
	case "":
		return domain.Outbound{}, domain.ErrNoActiveActivity
	default:
		return domain.Outbound{}, domain.ErrWrongActivity
	}
	switch seg.Phase {
	case DrawStart, DrawMove, DrawEnd:
	default:
		return domain.Outbound{}, domain.ErrWrongActivity
	}
	stroke := domain.Stroke{
		Tool:        seg.Tool,
		Color:       seg.Color,
		StrokeWidth: seg.Width / v.Canvas.Width,
		Points:      make([]domain.Point, 0, len(seg.Points)),
	}
	if stroke.Tool == "" {
		stroke.Tool = domain.ToolPen
	}
	for _, p := range seg.Points {
		np, err := normalize(v.Canvas, p)
		if err != nil {
			return domain.Outbound{}, err
		}
		stroke.Points = append(stroke.Points, np)
	}
	return domain.Outbound{Type: EmitDrawingEvent, Payload: drawingEventPayload{
		SessionCode: b.id.SessionCode,
		DrawData:    drawData{Type: seg.Phase, Line: stroke, SlideID: v.SlideID},
	}}, nil
}

// ClearCanvas wipes the drawing on the current slide for everyone.
func (b *CommandBuilder) ClearCanvas(v View) (domain.Outbound, error) {
	if err := b.presenter(v); err != nil {
		return domain.Outbound{}, err
	}
	return domain.Outbound{Type: EmitClearCanvas, Payload: slidePayload{SessionCode: b.id.SessionCode, SlideID: v.SlideID}}, nil
}

// StartPresentation moves everyone from the lobby to the first slide.
func (b *CommandBuilder) StartPresentation(v View) (domain.Outbound, error) {
	if err := b.teacher(v); err != nil {
		return domain.Outbound{}, err
	}
	return domain.Outbound{Type: EmitStartPresentation, Payload: sessionPayload{SessionCode: b.id.SessionCode}}, nil
}

// ChangeSlide moves everyone to page.
func (b *CommandBuilder) ChangeSlide(v View, page int) (domain.Outbound, error) {
	if err := b.teacher(v); err != nil {
		return domain.Outbound{}, err
	}
	if page < 1 || page > len(b.presentation.Slides) {
		return domain.Outbound{}, domain.ErrPageOutOfRange
	}
	return domain.Outbound{Type: EmitChangeSlide, Payload: changeSlidePayload{SessionCode: b.id.SessionCode, PageNumber: page}}, nil
}

// StartActivity launches the activity configured on the current slide.
// Drawing can be started on any slide.
func (b *CommandBuilder) StartActivity(v View, kind domain.ActivityKind) (domain.Outbound, error) {
	if err := b.teacher(v); err != nil {
		return domain.Outbound{}, err
	}
	event, ok := startEvents[kind]
	if !ok {
		return domain.Outbound{}, domain.ErrWrongActivity
	}
	slide, ok := b.presentation.SlideAt(v.Page)
	if !ok {
		return domain.Outbound{}, domain.ErrSlideUnknown
	}
	if kind != domain.KindDrawing && slide.InteractiveType != kind {
		return domain.Outbound{}, domain.ErrWrongActivity
	}
	return domain.Outbound{Type: event, Payload: slidePayload{SessionCode: b.id.SessionCode, SlideID: slide.ID}}, nil
}

// HideDrawing removes the drawing overlay for everyone.
func (b *CommandBuilder) HideDrawing(v View) (domain.Outbound, error) {
	if err := b.teacher(v); err != nil {
		return domain.Outbound{}, err
	}
	if v.SlideID == "" {
		return domain.Outbound{}, domain.ErrSlideUnknown
	}
	return domain.Outbound{Type: EmitHideDrawing, Payload: slidePayload{SessionCode: b.id.SessionCode, SlideID: v.SlideID}}, nil
}

// EndSession closes the session for everyone.
func (b *CommandBuilder) EndSession(v View) (domain.Outbound, error) {
	if err := b.teacher(v); err != nil {
		return domain.Outbound{}, err
	}
	return domain.Outbound{Type: EmitEndSession, Payload: sessionPayload{SessionCode: b.id.SessionCode}}, nil
}

// PickStudent asks the server to pick a random participant.
func (b *CommandBuilder) PickStudent(v View) (domain.Outbound, error) {
	if err := b.teacher(v); err != nil {
		return domain.Outbound{}, err
	}
	return domain.Outbound{Type: EmitPickStudent, Payload: sessionPayload{SessionCode: b.id.SessionCode}}, nil
}

func (b *CommandBuilder) singleShot(v View, kind domain.ActivityKind) (domain.Activity, error) {
	if v.Phase == PhaseEnded {
		return nil, domain.ErrSessionEnded
	}
	if v.Activity == nil {
		return nil, domain.ErrNoActiveActivity
	}
	if v.Activity.Kind() != kind {
		return nil, domain.ErrWrongActivity
	}
	if v.HasSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}
	if v.Activity.SlideID() == "" {
		return nil, domain.ErrSlideUnknown
	}
	return v.Activity, nil
}

func (b *CommandBuilder) teacher(v View) error {
	if b.id.Role != domain.RoleTeacher {
		return domain.ErrNotTeacher
	}
	if v.Phase == PhaseEnded {
		return domain.ErrSessionEnded
	}
	return nil
}

func (b *CommandBuilder) presenter(v View) error {
	if err := b.teacher(v); err != nil {
		return err
	}
	return onCanvas(v)
}

func onCanvas(v View) error {
	if v.Phase == PhaseEnded {
		return domain.ErrSessionEnded
	}
	if v.SlideID == "" {
		return domain.ErrSlideUnknown
	}
	if !v.Canvas.Measured() {
		return domain.ErrCanvasUnmeasured
	}
	return nil
}

func offers(act domain.Activity, option string) bool {
	for _, o := range domain.Options(act) {
		if o == option {
			return true
		}
	}
	return false
}

func normalize(c domain.Canvas, p domain.Point) (domain.Point, error) {
	if !c.Measured() {
		return domain.Point{}, domain.ErrCanvasUnmeasured
	}
	if p.X < 0 || p.Y < 0 || p.X > c.Width || p.Y > c.Height {
		return domain.Point{}, domain.ErrOutsideCanvas
	}
	return domain.Point{X: p.X / c.Width, Y: p.Y / c.Height}, nil
}
