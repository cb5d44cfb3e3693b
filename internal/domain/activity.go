package domain

// ActivityKind names the interactive exercise attached to a slide.
type ActivityKind string

const (
	KindPoll       ActivityKind = "poll"
	KindQuiz       ActivityKind = "quiz"
	KindWordCloud  ActivityKind = "word_cloud"
	KindBubbleQuiz ActivityKind = "bubble_quiz"
	KindDrawing    ActivityKind = "drawing"
)

// SingleShot reports whether a participant may submit only once for this kind.
func (k ActivityKind) SingleShot() bool {
	switch k {
	case KindPoll, KindQuiz, KindWordCloud, KindBubbleQuiz:
		return true
	}
	return false
}

// Valid reports whether k is one of the known kinds.
func (k ActivityKind) Valid() bool {
	return k.SingleShot() || k == KindDrawing
}

// Activity is the live exercise on the current slide. The concrete types below
// are the only implementations; a nil Activity means nothing is running.
type Activity interface {
	Kind() ActivityKind
	SlideID() string
	Clone() Activity
	withSlide(id string) Activity
}

// WithSlide returns a copy of a stamped with slideID.
func WithSlide(a Activity, slideID string) Activity {
	if a == nil {
		return nil
	}
	return a.withSlide(slideID)
}

// Poll is an anonymous multiple choice vote.
type Poll struct {
	Slide    string   `json:"slide_id" yaml:"slide_id"`
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
}

func (p *Poll) Kind() ActivityKind { return KindPoll }
func (p *Poll) SlideID() string    { return p.Slide }

func (p *Poll) Clone() Activity {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	return &c
}

func (p *Poll) withSlide(id string) Activity {
	c := p.Clone().(*Poll)
	c.Slide = id
	return c
}

// Quiz is a scored multiple choice question. The correct answer never reaches participants.
type Quiz struct {
	Slide    string   `json:"slide_id" yaml:"slide_id"`
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
}

func (q *Quiz) Kind() ActivityKind { return KindQuiz }
func (q *Quiz) SlideID() string    { return q.Slide }

func (q *Quiz) Clone() Activity {
	c := *q
	c.Options = append([]string(nil), q.Options...)
	return &c
}

func (q *Quiz) withSlide(id string) Activity {
	c := q.Clone().(*Quiz)
	c.Slide = id
	return c
}

// WordCloud collects one free-text word per participant.
type WordCloud struct {
	Slide    string `json:"slide_id" yaml:"slide_id"`
	Question string `json:"question" yaml:"question"`
}

func (w *WordCloud) Kind() ActivityKind { return KindWordCloud }
func (w *WordCloud) SlideID() string    { return w.Slide }

func (w *WordCloud) Clone() Activity {
	c := *w
	return &c
}

func (w *WordCloud) withSlide(id string) Activity {
	c := *w
	c.Slide = id
	return &c
}

// BubbleQuiz asks participants to click a spot on the slide.
type BubbleQuiz struct {
	Slide        string `json:"slide_id" yaml:"slide_id"`
	CorrectAreas []Area `json:"correct_areas" yaml:"correct_areas"`
}

func (b *BubbleQuiz) Kind() ActivityKind { return KindBubbleQuiz }
func (b *BubbleQuiz) SlideID() string    { return b.Slide }

func (b *BubbleQuiz) Clone() Activity {
	c := *b
	c.CorrectAreas = append([]Area(nil), b.CorrectAreas...)
	return &c
}

func (b *BubbleQuiz) withSlide(id string) Activity {
	c := b.Clone().(*BubbleQuiz)
	c.Slide = id
	return c
}

// Drawing is the presenter's freehand overlay.
type Drawing struct {
	Slide   string   `json:"slide_id" yaml:"slide_id"`
	Strokes []Stroke `json:"strokes" yaml:"strokes"`
}

func (d *Drawing) Kind() ActivityKind { return KindDrawing }
func (d *Drawing) SlideID() string    { return d.Slide }

func (d *Drawing) Clone() Activity {
	c := *d
	c.Strokes = make([]Stroke, len(d.Strokes))
	for i, s := range d.Strokes {
		c.Strokes[i] = s.Clone()
	}
	return &c
}

func (d *Drawing) withSlide(id string) Activity {
	c := d.Clone().(*Drawing)
	c.Slide = id
	return c
}

// Options returns the choices of a poll or quiz, nil for other kinds.
func Options(a Activity) []string {
	switch v := a.(type) {
	case *Poll:
		return v.Options
	case *Quiz:
		return v.Options
	}
	return nil
}
