package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"eduslide-live/internal/app"
	"eduslide-live/internal/config"
	"eduslide-live/internal/domain"
	"eduslide-live/internal/validation"
)

type joinFlags struct {
	code string
	name string
	role string
	sid  string
}

type joinRequest struct {
	Code string `yaml:"code" validate:"required,alphanum"`
	Name string `yaml:"name" validate:"required_if=Role student,omitempty,notblank"`
	Role string `yaml:"role" validate:"oneof=student teacher"`
}

// NewJoinCmd joins a live session, reads intents from stdin and prints every
// view change as a YAML document.
func NewJoinCmd(configPath *string) *cobra.Command {
	flags := &joinFlags{}
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a live session as a student or presenter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), *configPath, flags, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flags.code, "code", "", "session code (overrides session.code)")
	cmd.Flags().StringVar(&flags.name, "name", "", "display name (overrides session.name)")
	cmd.Flags().StringVar(&flags.role, "role", "", "student or teacher (overrides session.role)")
	cmd.Flags().StringVar(&flags.sid, "sid", "", "client id; generated when empty")
	return cmd
}

func runJoin(ctx context.Context, configPath string, flags *joinFlags, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	id := identityFrom(cfg, flags)
	if err := validation.Validate.Struct(joinRequest{Code: id.SessionCode, Name: id.Name, Role: string(id.Role)}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	repo, err := d.presentations(cfg)
	if err != nil {
		return err
	}
	channel, err := d.channel(ctx, cfg, id)
	if err != nil {
		return err
	}
	session, err := app.Open(ctx, repo, channel, id, d.log)
	if err != nil {
		_ = channel.Close()
		return err
	}
	if cfg.Canvas.Width > 0 && cfg.Canvas.Height > 0 {
		// applied once the loop is running
		go func() {
			_ = session.Do(ctx, app.ResizeCanvas{Width: cfg.Canvas.Width, Height: cfg.Canvas.Height})
		}()
	}

	views, cancel := session.Subscribe()
	defer cancel()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		for v := range views {
			if err := enc.Encode(v); err != nil {
				d.log.Error("printing view", err)
				return
			}
		}
	}()

	go readIntents(ctx, session, in, d)

	d.log.Info("joining session", id.SessionCode, "as", id.Role, id.Name)
	err = session.Run(ctx)
	<-printed
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func identityFrom(cfg config.Config, flags *joinFlags) app.Identity {
	id := app.Identity{
		SessionCode: cfg.Session.Code,
		Name:        cfg.Session.Name,
		Role:        domain.Role(cfg.Session.Role),
		SID:         cfg.Session.SID,
	}
	if flags.code != "" {
		id.SessionCode = flags.code
	}
	if flags.name != "" {
		id.Name = flags.name
	}
	if flags.role != "" {
		id.Role = domain.Role(flags.role)
	}
	if flags.sid != "" {
		id.SID = flags.sid
	}
	if id.Role == "" {
		id.Role = domain.RoleStudent
	}
	if id.SID == "" {
		id.SID = uuid.NewString()
	}
	return id
}

func readIntents(ctx context.Context, session *app.LiveSession, in io.Reader, d *deps) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		intent, err := parseIntent(line)
		if errors.Is(err, errLeave) {
			break
		}
		if err != nil {
			d.log.Warn(err.Error())
			continue
		}
		if err := session.Do(ctx, intent); err != nil {
			if errors.Is(err, domain.ErrClosed) || ctx.Err() != nil {
				return
			}
			d.log.Warn("rejected", line, err)
		}
	}
	session.Leave()
}
