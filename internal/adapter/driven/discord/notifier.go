// Package discord implements the Notifier port by direct-messaging users
// through a Discord bot.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Notifier = (*Notifier)(nil)
	_ driven.Notifier = (*LogNotifier)(nil)
)

// Notifier delivers notifications as Discord DMs. The target is the
// recipient's Discord user id, captured when the user opts in.
type Notifier struct {
	session *discordgo.Session
}

// NewNotifier creates a Notifier from a bot token. The session is used for
// REST calls only; no gateway connection is opened.
func NewNotifier(botToken string) (*Notifier, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Notifier{session: session}, nil
}

// Deliver opens (or reuses) the DM channel with the target user and sends
// the message.
func (n *Notifier) Deliver(ctx context.Context, target, text string) error {
	channel, err := n.session.UserChannelCreate(target, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel for %s: %w", target, err)
	}

	if _, err := n.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", target, err)
	}
	return nil
}

// LogNotifier logs deliveries instead of sending them. It stands in when no
// bot token is configured, so the scheduler keeps running in development.
type LogNotifier struct{}

// Deliver logs the would-be notification.
func (LogNotifier) Deliver(_ context.Context, target, text string) error {
	slog.Info("notification (no delivery channel configured)", "target", target, "text", text)
	return nil
}
