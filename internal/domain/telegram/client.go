package telegram

import "gopkg.in/telebot.v3"

// Client posts messages to an operations chat.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}
