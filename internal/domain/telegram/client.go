package telegram

import "gopkg.in/telebot.v3"

// Client is the outbound notification capability. It decouples the
// application logic from the concrete bot library and transport.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
