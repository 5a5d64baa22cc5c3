package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// ReminderRunner triggers one reminder run and returns how many reminders it sent.
type ReminderRunner interface {
	Run(ctx context.Context) (int, error)
}

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterBotCommands wires the operations commands. Only the configured admin chat may use them.
func RegisterBotCommands(
	b *telebot.Bot,
	adminChatID int64,
	runner ReminderRunner,
	store Pinger,
	runTimeout time.Duration,
	baseLogger *logrus.Entry,
) {
	logger := baseLogger.WithField("handler_group", "ops_commands")

	authorized := func(command string, handler func(c telebot.Context, logCtx *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			logCtx := logger.WithFields(logrus.Fields{"command": command, "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			if c.Chat().ID != adminChatID && c.Sender().ID != adminChatID {
				logCtx.Warn("Unauthorized access attempt")
				return c.Send("You are not allowed to use this bot.")
			}
			logCtx.Info("Command received")
			return handler(c, logCtx)
		}
	}

	b.Handle("/start", authorized("/start", func(c telebot.Context, logCtx *logrus.Entry) error {
		return c.Send(fmt.Sprintf("Hello %s. Failed statement notifications will be posted here. Use /help for commands.", c.Sender().FirstName))
	}))

	b.Handle("/help", authorized("/help", func(c telebot.Context, logCtx *logrus.Entry) error {
		var helpText strings.Builder
		helpText.WriteString("Available commands:\n\n")
		helpText.WriteString("`/remind`\n - Run the statement reminder job now.\n\n")
		helpText.WriteString("`/health`\n - Check the database connection.\n\n")
		helpText.WriteString("`/help`\n - Show this message.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}))

	b.Handle("/remind", authorized("/remind", func(c telebot.Context, logCtx *logrus.Entry) error {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		sent, err := runner.Run(ctx)
		if err != nil {
			logCtx.WithError(err).Error("Manual reminder run failed")
			return c.Send(fmt.Sprintf("Reminder run failed after sending %d reminders: %v", sent, err))
		}
		logCtx.WithField("sent", sent).Info("Manual reminder run complete")
		return c.Send(fmt.Sprintf("Reminder run complete, %d reminders sent.", sent))
	}))

	b.Handle("/health", authorized("/health", func(c telebot.Context, logCtx *logrus.Entry) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logCtx.WithError(err).Warn("Store ping failed")
			return c.Send("Database is unreachable: " + err.Error())
		}
		return c.Send("Database is reachable.")
	}))
}
