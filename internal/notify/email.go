// Package notify implements the outbound alert boundary over SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when SMTP credentials are absent.
var ErrNotConfigured = errors.New("email notifier not configured")

// Emailer sends low-attendance alert emails. Credentials come from
// deployment config; nothing here is embedded in engine logic.
type Emailer struct {
	dialer *gomail.Dialer
	from   string
	log    *logrus.Logger
}

// NewEmailer creates an emailer. With an empty host every Send fails with
// ErrNotConfigured, which keeps local setups working without mail.
func NewEmailer(host string, port int, username, password, from string, log *logrus.Logger) *Emailer {
	if log == nil {
		log = logrus.New()
	}
	e := &Emailer{from: from, log: log}
	if host != "" && username != "" {
		e.dialer = gomail.NewDialer(host, port, username, password)
	}
	if e.from == "" {
		e.from = username
	}
	return e
}

// Send delivers one alert email.
func (e *Emailer) Send(ctx context.Context, contactEmail, studentName, courseName string, percentage, threshold float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.dialer == nil {
		e.log.Warn("email credentials not configured, skipping send")
		return ErrNotConfigured
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", contactEmail)
	m.SetHeader("Subject", "Low Attendance Warning")

	body := fmt.Sprintf(`Dear %s,

This is an automated reminder regarding your attendance for the course %s.

Current attendance: %.2f%%
Required threshold: %.0f%%

Your attendance is below the required threshold. Please contact your mentor
or professor, attend all remaining classes, and check your attendance
regularly.

Best regards,
Attendance Tracker`, studentName, courseName, percentage, threshold)
	m.SetBody("text/plain", body)

	if err := e.dialer.DialAndSend(m); err != nil {
		return err
	}
	e.log.WithField("to", contactEmail).Info("attendance alert sent")
	return nil
}
