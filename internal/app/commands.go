package app

import (
	"eduslide-live/internal/aggregate"
	"eduslide-live/internal/domain"
)

// Command is a state transition for the Reconciler, produced by the EventMapper
// from inbound events or by the LiveSession from local actions.
type Command interface {
	command()
}

// SetConnection records the transport status.
type SetConnection struct {
	Status domain.ConnectionStatus
}

// ResetForSlide moves to page and clears everything activity-scoped.
type ResetForSlide struct {
	Page int
}

// StartActivity replaces the current activity.
type StartActivity struct {
	Activity domain.Activity
}

// ReplaceAggregate swaps in server-computed results for the active activity.
// Counts is set for polls and word clouds, Clicks for bubble quizzes.
type ReplaceAggregate struct {
	Kind    domain.ActivityKind
	SlideID string
	Counts  aggregate.Counts
	Clicks  []domain.Click
}

// SetLocalFeedback records whether the participant's quiz answer was correct.
type SetLocalFeedback struct {
	Correct bool
	SlideID string
}

// HideDrawing ends the drawing overlay.
type HideDrawing struct{}

// ClearCanvas wipes every stroke of the drawing on SlideID.
type ClearCanvas struct {
	SlideID string
}

// DrawPhase is the pointer phase a drawing update belongs to.
type DrawPhase string

const (
	DrawStart DrawPhase = "start"
	DrawMove  DrawPhase = "draw"
	DrawEnd   DrawPhase = "end"
)

// UpdateDrawing applies one stroke update from the presenter.
type UpdateDrawing struct {
	Phase   DrawPhase
	Stroke  domain.Stroke
	SlideID string
}

// SetLeaderboard replaces the live leaderboard.
type SetLeaderboard struct {
	Entries []domain.LeaderboardEntry
}

// PickStudent shows the random picker result.
type PickStudent struct {
	Picked domain.PickedStudent
}

// ReplaceRoster replaces the session participant list.
type ReplaceRoster struct {
	Participants []domain.Participant
}

// AcknowledgeJoin records that the server accepted the join.
type AcknowledgeJoin struct {
	Message string
}

// TerminateSession ends the session for good.
type TerminateSession struct {
	Message string
}

// Resize records a new rendered canvas size.
type Resize struct {
	Canvas domain.Canvas
}

// MarkSubmitted sets the one-shot submission guard of the active activity.
type MarkSubmitted struct{}

func (SetConnection) command()    {}
func (ResetForSlide) command()    {}
func (StartActivity) command()    {}
func (ReplaceAggregate) command() {}
func (SetLocalFeedback) command() {}
func (HideDrawing) command()      {}
func (ClearCanvas) command()      {}
func (UpdateDrawing) command()    {}
func (SetLeaderboard) command()   {}
func (PickStudent) command()      {}
func (ReplaceRoster) command()    {}
func (AcknowledgeJoin) command()  {}
func (TerminateSession) command() {}
func (Resize) command()           {}
func (MarkSubmitted) command()    {}
