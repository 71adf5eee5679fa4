package inform

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// SMTPSender sends emails over plain SMTP
type SMTPSender struct {
	addr     string
	host     string
	username string
	password string
}

// NewSMTPSender inits the sender from config
func NewSMTPSender(c *viper.Viper) (*SMTPSender, error) {
	res := &SMTPSender{}
	res.host = c.GetString("smtp.host")
	if res.host == "" {
		return nil, fmt.Errorf("no smtp.host")
	}
	port := c.GetInt("smtp.port")
	if port == 0 {
		port = 587
	}
	res.addr = fmt.Sprintf("%s:%d", res.host, port)
	res.username = c.GetString("smtp.username")
	res.password = c.GetString("smtp.password")
	log.Info().Str("addr", res.addr).Msg("SMTP sender")
	return res, nil
}

// Send sends the email
func (s *SMTPSender) Send(e *email.Email) error {
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := e.Send(s.addr, auth); err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}
	return nil
}
