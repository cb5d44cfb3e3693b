package app

import (
	"errors"
	"fmt"

	"eduslide-live/internal/aggregate"
	"eduslide-live/internal/domain"
)

var errNoOpenStroke = errors.New("no stroke in progress")

// Phase is the coarse state of the activity state machine.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhaseEnded  Phase = "ended"
)

// SessionView is one participant's picture of the live session.
// Only the Reconciler writes to it.
type SessionView struct {
	Page     int
	SlideID  string
	Status   domain.ConnectionStatus
	Activity domain.Activity

	// Activity-scoped; cleared whenever Activity is replaced or the slide changes.
	HasSubmitted bool
	Feedback     *bool
	Counts       aggregate.Counts
	Clicks       []domain.Click

	Canvas      domain.Canvas
	Leaderboard []domain.LeaderboardEntry
	Roster      []domain.Participant
	Picked      *domain.PickedStudent
	Joined      bool
	JoinMessage string
	Ended       bool
	EndMessage  string
}

// Reconciler owns the SessionView and applies commands to it in order.
// It is not safe for concurrent use; LiveSession drives it from a single goroutine.
type Reconciler struct {
	presentation domain.Presentation
	view         SessionView
}

func NewReconciler(presentation domain.Presentation) *Reconciler {
	return &Reconciler{
		presentation: presentation,
		view:         SessionView{Status: domain.StatusConnecting},
	}
}

// Phase reports the current state machine state.
func (r *Reconciler) Phase() Phase {
	switch {
	case r.view.Ended:
		return PhaseEnded
	case r.view.Activity != nil:
		return PhaseActive
	default:
		return PhaseIdle
	}
}

// Apply runs cmd against the view. A nil error means the view changed; the
// sentinel errors in domain explain why a command was ignored. Ignored commands
// leave the view untouched.
func (r *Reconciler) Apply(cmd Command) error {
	if r.view.Ended {
		return domain.ErrSessionEnded
	}

	switch c := cmd.(type) {
	case SetConnection:
		r.view.Status = c.Status

	case ResetForSlide:
		r.resetForSlide(c.Page)

	case StartActivity:
		if c.Activity == nil {
			return fmt.Errorf("start activity: %w", domain.ErrNoActiveActivity)
		}
		if id := c.Activity.SlideID(); id != "" && r.view.SlideID != "" && id != r.view.SlideID {
			return domain.ErrOutOfContext
		}
		next := c.Activity.Clone()
		if next.SlideID() == "" {
			next = domain.WithSlide(next, r.view.SlideID)
		}
		r.clearActivity()
		r.view.Activity = next

	case ReplaceAggregate:
		if _, err := r.active(c.Kind, c.SlideID); err != nil {
			return err
		}
		if c.Kind == domain.KindBubbleQuiz {
			r.view.Clicks = append([]domain.Click{}, c.Clicks...)
		} else {
			r.view.Counts = c.Counts.Clone()
			if r.view.Counts == nil {
				r.view.Counts = aggregate.Counts{}
			}
		}

	case SetLocalFeedback:
		if _, err := r.active(domain.KindQuiz, c.SlideID); err != nil {
			return err
		}
		correct := c.Correct
		r.view.Feedback = &correct

	case HideDrawing:
		if _, err := r.active(domain.KindDrawing, ""); err != nil {
			return err
		}
		r.clearActivity()

	case ClearCanvas:
		act, err := r.active(domain.KindDrawing, c.SlideID)
		if err != nil {
			return err
		}
		act.(*domain.Drawing).Strokes = []domain.Stroke{}

	case UpdateDrawing:
		act, err := r.active(domain.KindDrawing, c.SlideID)
		if err != nil {
			return err
		}
		return applyStroke(act.(*domain.Drawing), c)

	case SetLeaderboard:
		r.view.Leaderboard = append([]domain.LeaderboardEntry{}, c.Entries...)

	case PickStudent:
		picked := c.Picked
		picked.Participants = append([]string{}, c.Picked.Participants...)
		r.view.Picked = &picked

	case ReplaceRoster:
		r.view.Roster = append([]domain.Participant{}, c.Participants...)

	case AcknowledgeJoin:
		r.view.Joined = true
		r.view.JoinMessage = c.Message

	case TerminateSession:
		r.clearActivity()
		r.view.Ended = true
		r.view.EndMessage = c.Message

	case Resize:
		w, h := c.Canvas.Width, c.Canvas.Height
		if w < 0 {
			w = 0
		}
		if h < 0 {
			h = 0
		}
		r.view.Canvas = domain.Canvas{Width: w, Height: h}

	case MarkSubmitted:
		if r.view.Activity == nil {
			return domain.ErrNoActiveActivity
		}
		if !r.view.Activity.Kind().SingleShot() {
			return domain.ErrWrongActivity
		}
		if r.view.HasSubmitted {
			return domain.ErrAlreadySubmitted
		}
		r.view.HasSubmitted = true

	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
	return nil
}

func (r *Reconciler) resetForSlide(page int) {
	r.clearActivity()
	r.view.Page = page
	r.view.SlideID = ""
	if slide, ok := r.presentation.SlideAt(page); ok {
		r.view.SlideID = slide.ID
	}
}

func (r *Reconciler) clearActivity() {
	r.view.Activity = nil
	r.view.HasSubmitted = false
	r.view.Feedback = nil
	r.view.Counts = nil
	r.view.Clicks = nil
}

// active returns the running activity when it has the given kind and, if
// slideID is set, targets that slide.
func (r *Reconciler) active(kind domain.ActivityKind, slideID string) (domain.Activity, error) {
	act := r.view.Activity
	if act == nil {
		return nil, domain.ErrNoActiveActivity
	}
	if act.Kind() != kind {
		return nil, domain.ErrWrongActivity
	}
	if slideID != "" && act.SlideID() != "" && slideID != act.SlideID() {
		return nil, domain.ErrOutOfContext
	}
	return act, nil
}

func applyStroke(d *domain.Drawing, c UpdateDrawing) error {
	stroke := c.Stroke.Clone()
	switch c.Phase {
	case DrawStart:
		d.Strokes = append(d.Strokes, stroke)
	case DrawMove, DrawEnd:
		if len(d.Strokes) == 0 {
			return errNoOpenStroke
		}
		d.Strokes[len(d.Strokes)-1] = stroke
	default:
		return fmt.Errorf("unknown draw phase %q", c.Phase)
	}
	return nil
}

// View is a display-ready copy of the session, safe to hand to other goroutines.
type View struct {
	Phase        Phase                     `json:"phase" yaml:"phase"`
	Status       domain.ConnectionStatus   `json:"status" yaml:"status"`
	Page         int                       `json:"page" yaml:"page"`
	SlideID      string                    `json:"slide_id,omitempty" yaml:"slide_id,omitempty"`
	Kind         domain.ActivityKind       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Activity     domain.Activity           `json:"activity,omitempty" yaml:"activity,omitempty"`
	HasSubmitted bool                      `json:"has_submitted" yaml:"has_submitted"`
	Feedback     *bool                     `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Results      aggregate.Counts          `json:"results,omitempty" yaml:"results,omitempty"`
	Clicks       []domain.Click            `json:"clicks,omitempty" yaml:"clicks,omitempty"`
	Bubbles      []aggregate.AreaResult    `json:"bubbles,omitempty" yaml:"bubbles,omitempty"`
	Canvas       domain.Canvas             `json:"canvas" yaml:"canvas"`
	Leaderboard  []domain.LeaderboardEntry `json:"leaderboard,omitempty" yaml:"leaderboard,omitempty"`
	Roster       []domain.Participant      `json:"roster,omitempty" yaml:"roster,omitempty"`
	Picked       *domain.PickedStudent     `json:"picked,omitempty" yaml:"picked,omitempty"`
	Joined       bool                      `json:"joined" yaml:"joined"`
	JoinMessage  string                    `json:"join_message,omitempty" yaml:"join_message,omitempty"`
	EndMessage   string                    `json:"end_message,omitempty" yaml:"end_message,omitempty"`
}

// View derives the display model. Bubble quiz areas are aggregated against the
// current canvas size.
func (r *Reconciler) View() View {
	v := r.view
	out := View{
		Phase:        r.Phase(),
		Status:       v.Status,
		Page:         v.Page,
		SlideID:      v.SlideID,
		HasSubmitted: v.HasSubmitted,
		Results:      v.Counts.Clone(),
		Canvas:       v.Canvas,
		Leaderboard:  append([]domain.LeaderboardEntry(nil), v.Leaderboard...),
		Roster:       append([]domain.Participant(nil), v.Roster...),
		Joined:       v.Joined,
		JoinMessage:  v.JoinMessage,
		EndMessage:   v.EndMessage,
	}
	if v.Activity != nil {
		out.Activity = v.Activity.Clone()
		out.Kind = v.Activity.Kind()
	}
	if v.Feedback != nil {
		correct := *v.Feedback
		out.Feedback = &correct
	}
	if v.Clicks != nil {
		out.Clicks = append([]domain.Click{}, v.Clicks...)
	}
	if v.Picked != nil {
		picked := *v.Picked
		picked.Participants = append([]string(nil), v.Picked.Participants...)
		out.Picked = &picked
	}
	if bq, ok := v.Activity.(*domain.BubbleQuiz); ok {
		out.Bubbles = aggregate.BubbleAggregate(v.Clicks, bq.CorrectAreas, v.Canvas.Width, v.Canvas.Height)
	}
	return out
}
