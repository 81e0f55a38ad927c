// Outbound notification channels for finished runs. Channels are
// independent: one failing must not stop the others, so the pipeline
// logs and swallows per-channel errors.

package notify

import (
	"github.com/sirupsen/logrus"

	"gembidwatch/internal/config"
)

type Notifier interface {
	//Notify delivers one run summary, attaching the given files
	Notify(subject, body string, attachments ...string) error

	//Name is the channel name (email, telegram)
	Name() string
}

// FromConfig assembles every notifier the config enables: email when
// an SMTP server, sender and receivers are set, telegram when a token
// and chat id are set. Running with no notifier at all is valid, the
// pipeline still writes the report and logs its path.
func FromConfig(cfg config.NotifyConfig, log *logrus.Logger) ([]Notifier, error) {
	var notifiers []Notifier

	if cfg.Email.SMTPServer != "" && cfg.Email.Sender != "" && len(cfg.Email.Receivers) > 0 {
		notifiers = append(notifiers, NewEmailNotifier(cfg.Email, log))
	}

	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
	}

	return notifiers, nil
}
