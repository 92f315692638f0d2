// Package notify renders and delivers registration confirmation emails.
package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/iliyamo/exam-registration/internal/booking"
)

// Email is a rendered message ready for a Sender.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

const confirmationBody = `# Exam registration {{if .ReplacedRegistrationID}}rescheduled{{else}}confirmed{{end}}

Hello {{or .StudentName "student"}},

Your seat is booked. Keep your confirmation code handy on exam day.

| | |
|---|---|
| Confirmation code | **{{.ConfirmationCode}}** |
| Course | {{.CourseCode}} |
| Exam | {{.ExamType}} |
| Date | {{.ExamDate}} |
| Time | {{deref .StartTime}} – {{deref .EndTime}} |
| Professor | {{.ProfessorName}} |
| Location | {{.Location}} |
{{if .ReplacedRegistrationID}}
Your previous registration was canceled.
{{end}}
Please arrive 10 minutes early and bring a photo ID.
`

// Composer turns confirmations into emails. The body is written as
// markdown and rendered to HTML with goldmark.
type Composer struct {
	tmpl *template.Template
	md   goldmark.Markdown
}

// NewComposer builds a Composer with table support enabled.
func NewComposer() *Composer {
	funcs := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return "TBA"
			}
			return *s
		},
	}
	return &Composer{
		tmpl: template.Must(template.New("confirmation").Funcs(funcs).Parse(confirmationBody)),
		md:   goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Confirmation renders the confirmation email for c.
func (c *Composer) Confirmation(conf booking.Confirmation) (Email, error) {
	var text bytes.Buffer
	if err := c.tmpl.Execute(&text, conf); err != nil {
		return Email{}, fmt.Errorf("render confirmation: %w", err)
	}
	var html bytes.Buffer
	if err := c.md.Convert(text.Bytes(), &html); err != nil {
		return Email{}, fmt.Errorf("convert markdown: %w", err)
	}
	subject := "Exam registration confirmed: " + conf.ConfirmationCode
	if conf.ReplacedRegistrationID != 0 {
		subject = "Exam registration rescheduled: " + conf.ConfirmationCode
	}
	return Email{
		To:      conf.Email,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
