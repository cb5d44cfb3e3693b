package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"eduslide-live/internal/app"
	"eduslide-live/internal/config"
	"eduslide-live/internal/domain"
)

// NewReplayCmd folds a recorded event log into the view a participant would
// have ended up with.
func NewReplayCmd(configPath *string) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "replay <events.jsonl|->",
		Short: "Replay a JSON-lines event log and print the resulting view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), *configPath, code, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "session code whose presentation the log belongs to (overrides session.code)")
	return cmd
}

func runReplay(ctx context.Context, configPath, code, source string, stdin io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if code == "" {
		code = cfg.Session.Code
	}

	d, err := newDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	repo, err := d.presentations(cfg)
	if err != nil {
		return err
	}
	presentation, err := repo.GetPresentation(ctx, code)
	if err != nil {
		return fmt.Errorf("replay %s: %w", code, err)
	}

	in := stdin
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	events, err := readEventLog(in)
	if err != nil {
		return err
	}

	view, skipped := app.Replay(presentation, events)
	for _, s := range skipped {
		if s.Err != nil {
			d.log.Info("event had no effect", s.Index+1, s.Type, s.Err)
		} else {
			d.log.Debug("unknown event", s.Index+1, s.Type)
		}
	}

	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(view)
}

// readEventLog reads one {"type", "payload"} object per line; blank lines are skipped.
func readEventLog(r io.Reader) ([]domain.Event, error) {
	var events []domain.Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("event log line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}
