package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session code does not resolve to an open session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPresentationNotFound indicates the presentation behind a session could not be loaded.
	ErrPresentationNotFound = errors.New("presentation not found")
	// ErrMalformedEvent marks an inbound event whose payload is missing or mistyped.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrSessionEnded is returned for anything applied after the session terminated.
	ErrSessionEnded = errors.New("session has ended")
	// ErrNoActiveActivity indicates an activity-scoped command arrived while idle.
	ErrNoActiveActivity = errors.New("no active activity")
	// ErrOutOfContext indicates a command targets a slide that is no longer current.
	ErrOutOfContext = errors.New("event targets a slide that is not current")
	// ErrWrongActivity indicates a command does not apply to the active activity kind.
	ErrWrongActivity = errors.New("command does not match the active activity")

	// ErrAlreadySubmitted is returned when the one-shot submission guard is already set.
	ErrAlreadySubmitted = errors.New("already submitted for this activity")
	// ErrEmptyWord rejects blank word cloud submissions.
	ErrEmptyWord = errors.New("word must not be blank")
	// ErrUnknownOption rejects a choice that is not offered by the active activity.
	ErrUnknownOption = errors.New("option not offered by the active activity")
	// ErrCanvasUnmeasured indicates the canvas has no size yet, so clicks cannot be normalized.
	ErrCanvasUnmeasured = errors.New("canvas size unknown")
	// ErrOutsideCanvas rejects pointer positions outside the rendered canvas.
	ErrOutsideCanvas = errors.New("point outside canvas")
	// ErrSlideUnknown indicates the current page does not resolve to a slide.
	ErrSlideUnknown = errors.New("current slide unknown")
	// ErrPageOutOfRange rejects slide changes past either end of the deck.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrNotTeacher rejects presenter-only intents issued by a student.
	ErrNotTeacher = errors.New("only the presenter can do that")

	// ErrNotConnected is returned by transports when there is no live connection to write to.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned once a channel or live session has been torn down.
	ErrClosed = errors.New("closed")
)
