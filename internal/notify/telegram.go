package notify

import (
	"fmt"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramNotifier posts the run summary to a chat and uploads the
// report workbook as a document.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *logrus.Logger
}

func NewTelegramNotifier(token string, chatID int64, log *logrus.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		log:    log,
	}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(subject, body string, attachments ...string) error {
	msg := tgbotapi.NewMessage(n.chatID, subject+"\n\n"+body)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	for _, path := range attachments {
		doc := tgbotapi.NewDocument(n.chatID, tgbotapi.FilePath(path))
		if _, err := n.api.Send(doc); err != nil {
			return fmt.Errorf("send telegram document %s: %w", filepath.Base(path), err)
		}
	}

	n.log.WithField("subject", subject).Info("Telegram notification sent")
	return nil
}
