package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"eduslide-live/internal/domain"
	"eduslide-live/internal/logger"
)

// Intent is a local user action handed to a LiveSession.
type Intent interface {
	intent()
}

// Vote casts a poll vote for Option.
type Vote struct{ Option string }

// AnswerQuiz answers the running quiz with Option.
type AnswerQuiz struct{ Option string }

// SubmitWord adds Word to the running word cloud.
type SubmitWord struct{ Word string }

// ClickBubble answers the bubble quiz at canvas pixel (X, Y).
type ClickBubble struct{ X, Y float64 }

// Draw shares a stroke segment drawn in canvas pixels.
type Draw struct{ Segment StrokeSegment }

// WipeCanvas clears the drawing on the current slide.
type WipeCanvas struct{}

// ResizeCanvas records the rendered canvas size. It is local only.
type ResizeCanvas struct{ Width, Height float64 }

// StartPresentation moves the audience from the lobby to the first slide.
type StartPresentation struct{}

// ChangeSlide moves the audience to Page.
type ChangeSlide struct{ Page int }

// LaunchActivity starts the activity of Kind on the current slide.
type LaunchActivity struct{ Kind domain.ActivityKind }

// HideOverlay removes the drawing overlay.
type HideOverlay struct{}

// EndSession closes the session for everyone.
type EndSession struct{}

// PickRandom asks the server to pick a random participant.
type PickRandom struct{}

func (Vote) intent()              {}
func (AnswerQuiz) intent()        {}
func (SubmitWord) intent()        {}
func (ClickBubble) intent()       {}
func (Draw) intent()              {}
func (WipeCanvas) intent()        {}
func (ResizeCanvas) intent()      {}
func (StartPresentation) intent() {}
func (ChangeSlide) intent()       {}
func (LaunchActivity) intent()    {}
func (HideOverlay) intent()       {}
func (EndSession) intent()        {}
func (PickRandom) intent()        {}

type request struct {
	intent Intent
	reply  chan error
}

// LiveSession keeps one participant's view of a session in step with the server.
// Run is the only goroutine that touches the Reconciler; everything else talks
// to it through Do and reads snapshots through View and Subscribe.
type LiveSession struct {
	id           Identity
	presentation domain.Presentation
	channel      Channel
	log          logger.Logger

	mapper     *EventMapper
	reconciler *Reconciler
	builder    *CommandBuilder

	intents  chan request
	done     chan struct{}
	stopOnce sync.Once

	mu          sync.RWMutex
	view        View
	subscribers map[chan View]struct{}
}

// Open loads the presentation behind id.SessionCode and prepares a session over
// channel. A participant without an SID is given a fresh one.
func Open(ctx context.Context, repo PresentationRepository, channel Channel, id Identity, log logger.Logger) (*LiveSession, error) {
	presentation, err := repo.GetPresentation(ctx, id.SessionCode)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id.SessionCode, err)
	}
	if id.SID == "" {
		id.SID = uuid.NewString()
	}
	if id.Role == "" {
		id.Role = domain.RoleStudent
	}
	return newLiveSession(presentation, channel, id, log), nil
}

func newLiveSession(presentation domain.Presentation, channel Channel, id Identity, log logger.Logger) *LiveSession {
	s := &LiveSession{
		id:           id,
		presentation: presentation,
		channel:      channel,
		log:          log,
		mapper:       NewEventMapper(),
		reconciler:   NewReconciler(presentation),
		builder:      NewCommandBuilder(id, presentation),
		intents:      make(chan request),
		done:         make(chan struct{}),
		subscribers:  make(map[chan View]struct{}),
	}
	s.view = s.reconciler.View()
	return s
}

// Identity returns who this session speaks for.
func (s *LiveSession) Identity() Identity {
	return s.id
}

// Presentation returns the deck the session is running.
func (s *LiveSession) Presentation() domain.Presentation {
	return s.presentation
}

// Run processes server events and local intents until ctx is cancelled, Leave
// is called, or the channel's event stream closes.
func (s *LiveSession) Run(ctx context.Context) error {
	defer s.stop()

	events := s.channel.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, ev)
		case req := <-s.intents:
			req.reply <- s.handleIntent(ctx, req.intent)
		}
	}
}

// Do hands in to the loop and waits for its verdict.
func (s *LiveSession) Do(ctx context.Context, in Intent) error {
	req := request{intent: in, reply: make(chan error, 1)}
	select {
	case s.intents <- req:
	case <-s.done:
		return domain.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-s.done:
		return domain.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave tears the session down. Events that arrive afterwards are ignored.
func (s *LiveSession) Leave() {
	s.stop()
}

// Done is closed once the session has been torn down.
func (s *LiveSession) Done() <-chan struct{} {
	return s.done
}

// View returns the latest snapshot.
func (s *LiveSession) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Subscribe returns a channel of view snapshots, starting with the current one.
// Slow readers only miss intermediate snapshots. The caller must invoke cancel.
func (s *LiveSession) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	s.mu.Lock()
	if s.subscribers == nil {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.view
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *LiveSession) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if err := s.channel.Close(); err != nil {
			s.log.Warn("closing channel", err)
		}
		s.mu.Lock()
		for ch := range s.subscribers {
			close(ch)
		}
		s.subscribers = nil
		s.mu.Unlock()
	})
}

func (s *LiveSession) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *LiveSession) handleEvent(ctx context.Context, ev domain.Event) {
	if s.stopped() {
		return
	}
	cmd, err := s.mapper.Map(ev)
	if err != nil {
		s.log.Warn("dropping event", ev.Type, err)
		return
	}
	if cmd == nil {
		s.log.Debug("ignoring unknown event", ev.Type)
		return
	}
	if err := s.reconciler.Apply(cmd); err != nil {
		s.log.Debug("event had no effect", ev.Type, err)
	} else {
		s.publish()
	}

	if ev.Type == EventConnect && s.reconciler.Phase() != PhaseEnded {
		if err := s.channel.Emit(ctx, s.builder.Join()); err != nil {
			s.log.Error("sending join", s.id.SessionCode, err)
		}
	}
}

func (s *LiveSession) handleIntent(ctx context.Context, in Intent) error {
	v := s.reconciler.View()

	var (
		msg        domain.Outbound
		err        error
		singleShot bool
		after      Command
	)
	switch in := in.(type) {
	case Vote:
		msg, err = s.builder.Vote(v, in.Option)
		singleShot = true
	case AnswerQuiz:
		msg, err = s.builder.AnswerQuiz(v, in.Option)
		singleShot = true
	case SubmitWord:
		msg, err = s.builder.SubmitWord(v, in.Word)
		singleShot = true
	case ClickBubble:
		msg, err = s.builder.ClickBubble(v, in.X, in.Y)
		singleShot = true
	case Draw:
		msg, err = s.builder.Draw(v, in.Segment)
	case WipeCanvas:
		msg, err = s.builder.ClearCanvas(v)
	case ResizeCanvas:
		if err := s.reconciler.Apply(Resize{Canvas: domain.Canvas{Width: in.Width, Height: in.Height}}); err != nil {
			return err
		}
		s.publish()
		return nil
	case StartPresentation:
		msg, err = s.builder.StartPresentation(v)
		after = ResetForSlide{Page: 1}
	case ChangeSlide:
		msg, err = s.builder.ChangeSlide(v, in.Page)
		after = ResetForSlide{Page: in.Page}
	case LaunchActivity:
		msg, err = s.builder.StartActivity(v, in.Kind)
	case HideOverlay:
		msg, err = s.builder.HideDrawing(v)
	case EndSession:
		msg, err = s.builder.EndSession(v)
		after = TerminateSession{Message: defaultSessionEndedText}
	case PickRandom:
		msg, err = s.builder.PickStudent(v)
	default:
		return fmt.Errorf("unsupported intent %T", in)
	}
	if err != nil {
		return err
	}

	if singleShot {
		if err := s.reconciler.Apply(MarkSubmitted{}); err != nil {
			return err
		}
		s.publish()
	}
	if err := s.channel.Emit(ctx, msg); err != nil {
		return fmt.Errorf("emit %s: %w", msg.Type, err)
	}
	// The server does not echo these back to the sender.
	if after != nil {
		if err := s.reconciler.Apply(after); err != nil {
			s.log.Debug("local follow-up had no effect", msg.Type, err)
		}
		s.publish()
	}
	return nil
}

func (s *LiveSession) publish() {
	v := s.reconciler.View()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	for ch := range s.subscribers {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
