package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"text/template"
	"time"
)

const (
	TemplateInvitation    = "invitation"
	TemplatePasswordReset = "password_reset"
)

var invitationText = template.Must(template.New("invitation").Parse(`Hello,

You have been invited to join {{.CompanyName}} as {{.Role}}.

Complete your registration here:
{{.Link}}

This link expires in {{.ExpiresIn}}.
`))

var invitationHTML = htmltemplate.Must(htmltemplate.New("invitation").Parse(`<p>Hello,</p>
<p>You have been invited to join <strong>{{.CompanyName}}</strong> as {{.Role}}.</p>
<p><a href="{{.Link}}">Complete your registration</a></p>
<p>This link expires in {{.ExpiresIn}}.</p>
`))

var resetText = template.Must(template.New("reset").Parse(`Hello {{.UserName}},

We received a request to reset your password. Use the link below to choose a new one:
{{.Link}}

This link expires in {{.ExpiresIn}}. If you did not request a reset you can ignore this email.
`))

var resetHTML = htmltemplate.Must(htmltemplate.New("reset").Parse(`<p>Hello {{.UserName}},</p>
<p>We received a request to reset your password.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>This link expires in {{.ExpiresIn}}. If you did not request a reset you can ignore this email.</p>
`))

type InvitationData struct {
	To          string
	CompanyName string
	Role        string
	BaseURL     string
	Token       string
	TTL         time.Duration
}

type PasswordResetData struct {
	To       string
	UserName string
	BaseURL  string
	Token    string
	TTL      time.Duration
}

// Invitation renders the invitation email with a link carrying token.
func Invitation(data InvitationData) (Message, error) {
	view := map[string]string{
		"CompanyName": data.CompanyName,
		"Role":        data.Role,
		"Link":        LinkWithToken(data.BaseURL, data.Token),
		"ExpiresIn":   HumanDuration(data.TTL),
	}
	text, html, err := render(invitationText, invitationHTML, view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       data.To,
		Subject:  fmt.Sprintf("Welcome to %s - Account Created", data.CompanyName),
		Text:     text,
		HTML:     html,
		Template: TemplateInvitation,
	}, nil
}

// PasswordReset renders the password reset email.
func PasswordReset(data PasswordResetData) (Message, error) {
	view := map[string]string{
		"UserName":  data.UserName,
		"Link":      LinkWithToken(data.BaseURL, data.Token),
		"ExpiresIn": HumanDuration(data.TTL),
	}
	text, html, err := render(resetText, resetHTML, view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       data.To,
		Subject:  "Reset your password",
		Text:     text,
		HTML:     html,
		Template: TemplatePasswordReset,
	}, nil
}

// LinkWithToken appends token as the token query parameter of base.
func LinkWithToken(base, token string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// HumanDuration formats whole minutes or hours, e.g. "30 minutes", "1 hour".
func HumanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short time"
	case d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		m := int(d.Round(time.Minute) / time.Minute)
		if m <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
}

func render(text *template.Template, html *htmltemplate.Template, data any) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text mail: %w", err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html mail: %w", err)
	}
	return tb.String(), hb.String(), nil
}
