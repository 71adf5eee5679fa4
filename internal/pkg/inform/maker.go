package inform

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/jordan-wright/email"
	"github.com/spf13/viper"

	"github.com/callsense/callsense/internal/pkg/messages"
	"github.com/callsense/callsense/internal/pkg/persistence"
)

var defaultBody = `Hello,

your call analysis {{if .Failed}}failed{{else}}is ready{{end}}.

Call ID: {{.ID}}
Time: {{.At}}
{{- if .Error}}
Problem: {{.Error}}
{{- end}}
{{- if .URL}}

See {{.URL}}
{{- end}}

Best regards
`

// TemplateMaker renders notification emails from a text template
type TemplateMaker struct {
	tmpl     *template.Template
	from     string
	url      string
	subjects map[string]string
}

// NewTemplateMaker inits the maker from config
func NewTemplateMaker(c *viper.Viper) (*TemplateMaker, error) {
	res := &TemplateMaker{}
	res.from = c.GetString("mail.from")
	if res.from == "" {
		return nil, fmt.Errorf("no mail.from")
	}
	res.url = c.GetString("mail.url")
	res.subjects = map[string]string{
		messages.InformCompleted: "Call analysis completed",
		messages.InformFailed:    "Call analysis failed",
	}
	body := c.GetString("mail.template")
	if body == "" {
		body = defaultBody
	}
	var err error
	res.tmpl, err = template.New("mail").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("can't parse mail template: %w", err)
	}
	return res, nil
}

type mailData struct {
	ID     string
	At     string
	Error  string
	URL    string
	Failed bool
}

// Make prepares the email for the call
func (m *TemplateMaker) Make(call *persistence.Call, msgType string, at time.Time) (*email.Email, error) {
	subject, found := m.subjects[msgType]
	if !found {
		return nil, fmt.Errorf("unknown inform type '%s'", msgType)
	}
	data := mailData{ID: call.ID, At: at.Format("2006-01-02 15:04:05"), Failed: msgType == messages.InformFailed}
	if data.Failed {
		data.Error = call.Error
	}
	if m.url != "" {
		data.URL = fmt.Sprintf(m.url, call.ID)
	}
	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("can't render mail: %w", err)
	}
	res := email.NewEmail()
	res.From = m.from
	res.To = []string{call.Email}
	res.Subject = subject
	res.Text = body.Bytes()
	return res, nil
}
