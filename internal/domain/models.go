package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Event is one inbound frame from the session server.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is one frame the client sends to the session server.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Role distinguishes the presenter from the audience.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ConnectionStatus mirrors the transport state for display.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Point is a position normalized to the canvas, both axes in [0,1].
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Area is a circular target of a bubble quiz in normalized coordinates.
type Area struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// Click is one participant's bubble quiz answer as echoed by the server.
type Click struct {
	Point     Point  `json:"point" yaml:"point"`
	IsCorrect bool   `json:"is_correct" yaml:"is_correct"`
	Name      string `json:"name" yaml:"name"`
}

// Canvas is the rendered size of the slide area in pixels.
type Canvas struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Measured reports whether both dimensions are known.
func (c Canvas) Measured() bool {
	return c.Width > 0 && c.Height > 0
}

// Tool is the drawing instrument a stroke was made with.
type Tool string

const (
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolEraser      Tool = "eraser"
)

// Stroke is one drawn line. StrokeWidth is a fraction of the canvas width.
type Stroke struct {
	Tool        Tool    `yaml:"tool"`
	Color       string  `yaml:"color"`
	StrokeWidth float64 `yaml:"stroke_width"`
	Points      []Point `yaml:"points"`
}

type wireStroke struct {
	Tool        Tool      `json:"tool"`
	Color       string    `json:"color"`
	StrokeWidth float64   `json:"strokeWidth"`
	Points      []float64 `json:"points"`
}

// MarshalJSON writes points as the flat [x0, y0, x1, y1, ...] array the canvas uses.
func (s Stroke) MarshalJSON() ([]byte, error) {
	flat := make([]float64, 0, len(s.Points)*2)
	for _, p := range s.Points {
		flat = append(flat, p.X, p.Y)
	}
	tool := s.Tool
	if tool == "" {
		tool = ToolPen
	}
	return json.Marshal(wireStroke{Tool: tool, Color: s.Color, StrokeWidth: s.StrokeWidth, Points: flat})
}

// UnmarshalJSON reads the flat point array; an odd number of coordinates is rejected.
func (s *Stroke) UnmarshalJSON(data []byte) error {
	var w wireStroke
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.Points)%2 != 0 {
		return fmt.Errorf("stroke has %d coordinates, want an even number", len(w.Points))
	}
	switch w.Tool {
	case "":
		w.Tool = ToolPen
	case ToolPen, ToolHighlighter, ToolEraser:
	default:
		return fmt.Errorf("unknown drawing tool %q", w.Tool)
	}
	points := make([]Point, 0, len(w.Points)/2)
	for i := 0; i < len(w.Points); i += 2 {
		points = append(points, Point{X: w.Points[i], Y: w.Points[i+1]})
	}
	*s = Stroke{Tool: w.Tool, Color: w.Color, StrokeWidth: w.StrokeWidth, Points: points}
	return nil
}

// Clone returns a copy that shares no memory with s.
func (s Stroke) Clone() Stroke {
	s.Points = append([]Point(nil), s.Points...)
	return s
}

// Participant is a member of the session roster.
type Participant struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// UnmarshalJSON accepts either a bare display name or an {id, name} object.
func (p *Participant) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*p = Participant{Name: name}
		return nil
	}
	type plain Participant
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Participant(v)
	return nil
}

// LeaderboardEntry is one row of the live quiz leaderboard.
type LeaderboardEntry struct {
	StudentName string `json:"student_name" yaml:"student_name"`
	Score       int    `json:"score" yaml:"score"`
}

// PickedStudent is the result of the presenter's random picker.
type PickedStudent struct {
	Winner       string   `json:"winner" yaml:"winner"`
	Participants []string `json:"participants" yaml:"participants"`
}

// Slide is one page of a presentation.
type Slide struct {
	ID              string       `json:"id" yaml:"id"`
	PageNumber      int          `json:"page_number" yaml:"page_number"`
	ContentURL      string       `json:"content_url,omitempty" yaml:"content_url,omitempty"`
	InteractiveType ActivityKind `json:"interactive_type,omitempty" yaml:"interactive_type,omitempty"`
}

// Presentation is the deck a session is running.
type Presentation struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	SessionCode string  `json:"session_code" yaml:"session_code"`
	Slides      []Slide `json:"slides" yaml:"slides"`
}

// SlideAt returns the slide shown on page. Page 0 is the lobby and never resolves.
func (p Presentation) SlideAt(page int) (Slide, bool) {
	for _, s := range p.Slides {
		if s.PageNumber == page && page > 0 {
			return s, true
		}
	}
	return Slide{}, false
}

// SortSlides orders slides by page number.
func (p *Presentation) SortSlides() {
	sort.SliceStable(p.Slides, func(i, j int) bool {
		return p.Slides[i].PageNumber < p.Slides[j].PageNumber
	})
}
