package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/ShaanSolanki/lms/pkg/logger"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendGrid struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGrid(apiKey, appName, fromEmail string) *SendGrid {
	return &SendGrid{
		key:        apiKey,
		host:       sendgridHost,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

func (s *SendGrid) message(to, code string) *sgmail.SGMailV3 {
	text, html := otpBody(code)
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + otpSubject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", text),
		sgmail.NewContent("text/html", html),
	)
	return m
}

func (s *SendGrid) SendOTP(ctx context.Context, to, code string) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.message(to, code))

	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := sendgrid.MakeRequest(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

const otpSubject = "Your verification code"

func otpBody(code string) (text, html string) {
	text = fmt.Sprintf("Your verification code is %s. It expires in a few minutes.", code)
	html = fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in a few minutes.</p>", code)
	return text, html
}

// LogMailer writes codes to the log instead of sending them. Used when no SendGrid key is configured.
type LogMailer struct {
	log logger.Log
}

func NewLogMailer(log logger.Log) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendOTP(_ context.Context, to, code string) error {
	m.log.Info("verification code issued", "email", to, "code", code)
	return nil
}
