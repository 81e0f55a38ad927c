package notify

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	gomail "gopkg.in/mail.v2"

	"gembidwatch/internal/config"
)

// EmailNotifier delivers run summaries over SMTP with the report
// workbook attached.
type EmailNotifier struct {
	cfg config.EmailConfig
	log *logrus.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, log *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, log: log}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(subject, body string, attachments ...string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.Sender)
	m.SetHeader("To", n.cfg.Receivers...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	for _, path := range attachments {
		m.Attach(path)
	}

	dialer := gomail.NewDialer(n.cfg.SMTPServer, n.cfg.SMTPPort, n.cfg.Sender, n.cfg.Password)
	dialer.Timeout = 30 * time.Second
	dialer.StartTLSPolicy = gomail.MandatoryStartTLS

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %d receivers: %w", len(n.cfg.Receivers), err)
	}

	n.log.WithField("subject", subject).Info("Email sent")
	return nil
}
