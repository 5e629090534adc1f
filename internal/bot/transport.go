package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Transport — минимальный клиент Telegram для воркеров, которым нужна
// только отправка сообщений, без long polling и обработчиков.
type Transport struct {
	instance *telego.Bot
}

// NewTransport создает клиент и проверяет токен.
func NewTransport(token string) (*Transport, error) {
	const op = "bot.NewTransport"

	instance, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Transport{instance: instance}, nil
}

// SendMessage отправляет текст в чат.
func (t *Transport) SendMessage(ctx context.Context, chatID int64, text string) error {
	const op = "bot.Transport.SendMessage"

	_, err := t.instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
