// Package notify emails a summary of each completed game.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ninety-nine-go/internal/game"
	"ninety-nine-go/internal/game/rules"
)

const sendTimeout = 30 * time.Second

// Sender delivers mail messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	sender  Sender
	from    string
	to      string
	logger  *slog.Logger
	printer *message.Printer
}

// NewSMTPSender returns a go-mail client for host. Authentication is only
// configured when a username is given.
func NewSMTPSender(host string, port int, username, password string) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return client, nil
}

func NewMailer(sender Sender, from, to string, logger *slog.Logger) *Mailer {
	return &Mailer{
		sender:  sender,
		from:    from,
		to:      to,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

// Run sends a summary for every game_completed event until events is closed
// or ctx is cancelled. Send failures are logged and do not stop the loop.
func (m *Mailer) Run(ctx context.Context, events <-chan game.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != game.EventTypeGameCompleted || event.Game == nil {
				continue
			}
			if err := m.SendSummary(ctx, event.Game); err != nil {
				m.logger.Error("failed to send game summary", "game_id", event.Game.ID, "error", err)
			}
		}
	}
}

func (m *Mailer) SendSummary(ctx context.Context, g *game.Game) error {
	msg, err := m.buildMessage(g)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	m.logger.Info("game summary sent", "game_id", g.ID, "to", m.to)
	return nil
}

func (m *Mailer) buildMessage(g *game.Game) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(m.subject(g))
	msg.SetBodyString(mail.TypeTextPlain, m.body(g))
	return msg, nil
}

func (m *Mailer) subject(g *game.Game) string {
	if g.IsPerfect() {
		return m.printer.Sprintf("Perfect game! %d of %d", g.TotalScore(), rules.MaxGameScore)
	}
	return m.printer.Sprintf("Game completed: %d of %d", g.TotalScore(), rules.MaxGameScore)
}

func (m *Mailer) body(g *game.Game) string {
	var b strings.Builder

	b.WriteString(m.printer.Sprintf("Played %s on a %s table\n\n",
		g.PlayedAt.Format("Monday, January 2 2006 at 15:04"), g.TableSize))

	perfect := 0
	for _, f := range g.Frames {
		if !f.Completed {
			b.WriteString(m.printer.Sprintf("Frame %d: not played\n", f.Number))
			continue
		}
		if f.IsPerfect() {
			perfect++
		}
		b.WriteString(m.printer.Sprintf("Frame %d: %d + %d = %d (total %d)\n",
			f.Number, f.BreakBonus, f.BallCount, f.Score(), f.RunningTotal))
	}

	completed := g.CompletedFrames()
	average := 0.0
	if completed > 0 {
		average = float64(g.TotalScore()) / float64(completed)
	}
	b.WriteString(m.printer.Sprintf("\nTotal score: %d\n", g.TotalScore()))
	b.WriteString(m.printer.Sprintf("Average per frame: %.1f\n", average))
	b.WriteString(m.printer.Sprintf("Perfect frames: %d\n", perfect))
	return b.String()
}
