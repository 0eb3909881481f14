// Command terminal runs the Code Buddy chat client on a classroom machine.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/satishskid/codegurufs/internal/chat"
	"github.com/satishskid/codegurufs/internal/platform/config"
	"github.com/satishskid/codegurufs/internal/terminal"
	"github.com/satishskid/codegurufs/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadTerminal()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	t, err := identify(ctx, terminal.NewClient(cfg.ServerURL, nil), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("%s · %s · %s\n", t.Info.SchoolName, t.Info.ClassName, t.Info.TeacherName)

	name := strings.TrimSpace(cfg.StudentName)
	if name == "" {
		if name, err = askName(os.Stdin, os.Stdout); err != nil {
			return err
		}
	}

	client, err := chat.Dial(ctx, cfg.ServerURL, t.ID, name, cfg.APIKey)
	if err != nil {
		return err
	}
	slog.Info("connected", "terminal_id", t.ID, "student", name)

	p := tea.NewProgram(tui.New(ctx, client, name), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// identify activates the terminal by token, or checks the configured ID.
func identify(ctx context.Context, c *terminal.Client, cfg *config.TerminalConfig) (terminal.Terminal, error) {
	if cfg.TerminalID != "" {
		return c.Status(ctx, cfg.TerminalID)
	}
	t, err := c.Activate(ctx, cfg.Token)
	if err != nil {
		return terminal.Terminal{}, err
	}
	slog.Info("terminal activated", "terminal_id", t.ID)
	return t, nil
}

func askName(in io.Reader, out io.Writer) (string, error) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "What's your name? ")
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("reading name: %w", err)
			}
			return "", fmt.Errorf("no name entered")
		}
		if name := strings.TrimSpace(sc.Text()); name != "" {
			return name, nil
		}
	}
}
