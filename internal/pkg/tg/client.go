package tg_client

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Config struct {
	Token  string `yaml:"token" env:"TELEGRAM_TOKEN"`
	ChatID int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

func (c Config) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}

func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return bot, nil
}

// Sender is the part of tgbotapi.BotAPI the client needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client posts staff notifications into a single chat.
type Client struct {
	bot    Sender
	chatId int64
}

func New(bot Sender, chatId int64) *Client {
	return &Client{
		bot:    bot,
		chatId: chatId,
	}
}

func (c *Client) SendMessage(message string) error {
	msg := tgbotapi.NewMessage(c.chatId, message)

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("tg_client.SendMessage: %w", err)
	}

	return nil
}
