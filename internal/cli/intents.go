package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"eduslide-live/internal/app"
	"eduslide-live/internal/domain"
)

const intentHelp = `commands:
  vote <option>              answer <option>          word <text>
  click <x> <y>              resize <width> <height>
  draw <start|draw|end> <tool> <color> <width> <x> <y> [<x> <y> ...]
  clear                      hide
  begin                      slide <page>             start <poll|quiz|word_cloud|bubble_quiz|drawing>
  pick                       end                      leave`

var errLeave = errors.New("leave")

// parseIntent turns one line of user input into an intent. Options and words
// keep everything after the verb verbatim.
func parseIntent(line string) (app.Intent, error) {
	trimmed := strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(trimmed, " ")
	args := strings.Fields(rest)

	switch strings.ToLower(verb) {
	case "vote":
		return app.Vote{Option: strings.TrimSpace(rest)}, nil
	case "answer":
		return app.AnswerQuiz{Option: strings.TrimSpace(rest)}, nil
	case "word":
		return app.SubmitWord{Word: rest}, nil
	case "click":
		xy, err := floats(args, 2)
		if err != nil {
			return nil, err
		}
		return app.ClickBubble{X: xy[0], Y: xy[1]}, nil
	case "resize":
		wh, err := floats(args, 2)
		if err != nil {
			return nil, err
		}
		return app.ResizeCanvas{Width: wh[0], Height: wh[1]}, nil
	case "draw":
		return parseDraw(args)
	case "clear":
		return app.WipeCanvas{}, nil
	case "hide":
		return app.HideOverlay{}, nil
	case "begin":
		return app.StartPresentation{}, nil
	case "slide":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: slide <page>")
		}
		page, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("page: %w", err)
		}
		return app.ChangeSlide{Page: page}, nil
	case "start":
		if len(args) != 1 || !domain.ActivityKind(args[0]).Valid() {
			return nil, fmt.Errorf("usage: start <poll|quiz|word_cloud|bubble_quiz|drawing>")
		}
		return app.LaunchActivity{Kind: domain.ActivityKind(args[0])}, nil
	case "pick":
		return app.PickRandom{}, nil
	case "end":
		return app.EndSession{}, nil
	case "leave", "quit", "exit":
		return nil, errLeave
	}
	return nil, fmt.Errorf("unknown command %q\n%s", verb, intentHelp)
}

func parseDraw(args []string) (app.Intent, error) {
	if len(args) < 6 || (len(args)-4)%2 != 0 {
		return nil, fmt.Errorf("usage: draw <start|draw|end> <tool> <color> <width> <x> <y> [<x> <y> ...]")
	}
	phase := app.DrawPhase(args[0])
	switch phase {
	case app.DrawStart, app.DrawMove, app.DrawEnd:
	default:
		return nil, fmt.Errorf("unknown draw phase %q", args[0])
	}
	tool := domain.Tool(args[1])
	switch tool {
	case domain.ToolPen, domain.ToolHighlighter, domain.ToolEraser:
	default:
		return nil, fmt.Errorf("unknown tool %q", args[1])
	}
	width, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	coords, err := floats(args[4:], len(args)-4)
	if err != nil {
		return nil, err
	}
	points := make([]domain.Point, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		points = append(points, domain.Point{X: coords[i], Y: coords[i+1]})
	}
	return app.Draw{Segment: app.StrokeSegment{
		Phase:  phase,
		Tool:   tool,
		Color:  args[2],
		Width:  width,
		Points: points,
	}}, nil
}

func floats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		out[i] = f
	}
	return out, nil
}
