// Package mail delivers budget notifications by SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	DryRun   bool // log instead of sending
}

// Sender composes and sends notification emails.
type Sender struct {
	cfg    Config
	logger *log.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewSender(cfg Config, logger *log.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentMail),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Notify mails one family member about msg.
func (s *Sender) Notify(ctx context.Context, to core.Member, msg *amqp.NotificationMessage) error {
	e, err := s.Compose(to, msg)
	if err != nil {
		return err
	}

	if s.cfg.DryRun {
		s.logger.InfoContext(ctx, "Dry run, email not sent",
			"to", to.Email, "subject", e.Subject, log.FieldFamilyID, msg.FamilyID)
		return nil
	}

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send email", "to", to.Email, log.FieldError, err)
		return fmt.Errorf("send email to %s: %w", to.Email, err)
	}

	s.logger.InfoContext(ctx, "Email sent", "to", to.Email, "subject", e.Subject)
	return nil
}

// Compose builds the email for msg without sending it.
func (s *Sender) Compose(to core.Member, msg *amqp.NotificationMessage) (*email.Email, error) {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to.Email}

	var b strings.Builder
	fmt.Fprintf(&b, "Ciao %s,\n\n", to.Name)

	switch msg.Kind {
	case core.AlertBudgetWarning:
		e.Subject = fmt.Sprintf("[%s] Budget warning for %s", msg.FamilyName, msg.Period)
		fmt.Fprintf(&b, "At the current pace the family %q will spend %s in %s,\n",
			msg.FamilyName, core.Money{Cents: msg.ProjectedCents}, msg.Period)
		fmt.Fprintf(&b, "above its monthly budget of %s.\n", core.Money{Cents: msg.BudgetCents})
		if msg.BudgetHit != nil {
			fmt.Fprintf(&b, "The budget is expected to run out on %s.\n", msg.BudgetHit.Format("2006-01-02"))
		}
	case core.AlertThresholdBreach:
		e.Subject = fmt.Sprintf("[%s] %s over its limit in %s", msg.FamilyName, msg.Category, msg.Period)
		fmt.Fprintf(&b, "Spending on %q reached %s in %s, against a limit of %s.\n",
			msg.Category, core.Money{Cents: msg.SpentCents}, msg.Period, core.Money{Cents: msg.LimitCents})
	default:
		return nil, fmt.Errorf("unknown notification kind %q", msg.Kind)
	}

	b.WriteString("\nBilancio")
	e.Text = []byte(b.String())
	return e, nil
}
