// Package email sends notification emails over SMTP.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*
var templateFS embed.FS

// mailer is the part of *mail.Client the sender uses.
type mailer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Sender renders and delivers notification emails.
type Sender struct {
	client      mailer
	fromAddress string
	fromName    string
	frontendURL string
	html        *htmltemplate.Template
	text        *texttemplate.Template
	logger      *slog.Logger
}

var _ notify.EmailSender = (*Sender)(nil)

// NewSender builds an SMTP sender from cfg. STARTTLS is used when the server
// offers it.
func NewSender(cfg config.EmailConfig, logger *slog.Logger) (*Sender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newSender(client, cfg, logger)
}

func newSender(client mailer, cfg config.EmailConfig, logger *slog.Logger) (*Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/notification.html")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/notification.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &Sender{
		client:      client,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		html:        html,
		text:        text,
		logger:      logger.With(slog.String("component", "email_sender")),
	}, nil
}

// view is the template context.
type view struct {
	Title    string
	Message  string
	Priority string
	Link     string
	Action   string
}

// Rendered is a fully rendered email.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Render produces the subject and bodies for a notification.
func (s *Sender) Render(typ domain.NotificationType, data notify.EmailData) (Rendered, error) {
	v := view{
		Title:    data.Title,
		Message:  data.Message,
		Priority: string(data.Priority),
		Link:     s.link(data),
		Action:   actionLabel(typ),
	}

	var html, text bytes.Buffer
	if err := s.html.Execute(&html, v); err != nil {
		return Rendered{}, fmt.Errorf("render html body: %w", err)
	}
	if err := s.text.Execute(&text, v); err != nil {
		return Rendered{}, fmt.Errorf("render text body: %w", err)
	}
	return Rendered{Subject: data.Title, HTML: html.String(), Text: text.String()}, nil
}

// SendNotificationEmail renders the notification and sends it to to.
func (s *Sender) SendNotificationEmail(
	ctx context.Context,
	to string,
	typ domain.NotificationType,
	data notify.EmailData,
) error {
	rendered, err := s.Render(typ, data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromAddress); err != nil {
		return fmt.Errorf("set sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient address: %w", err)
	}
	msg.Subject(rendered.Subject)
	msg.SetBodyString(mail.TypeTextPlain, rendered.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", typ, err)
	}
	s.logger.Debug("notification email sent",
		slog.String("type", string(typ)),
		slog.String("user_id", data.RecipientID.String()))
	return nil
}

func (s *Sender) link(data notify.EmailData) string {
	if s.frontendURL == "" {
		return ""
	}
	switch {
	case data.TaskID != nil:
		return s.frontendURL + "/tasks/" + data.TaskID.String()
	case data.ProjectID != nil:
		return s.frontendURL + "/projects/" + data.ProjectID.String()
	default:
		return s.frontendURL + "/notifications"
	}
}

func actionLabel(typ domain.NotificationType) string {
	switch {
	case strings.HasPrefix(string(typ), "project_reminder_"), typ == domain.NotificationOverdueProjects:
		return "View project"
	case typ == domain.NotificationMention, typ == domain.NotificationTaskComment:
		return "View comment"
	case typ == domain.NotificationOverdueTasks:
		return "View your tasks"
	default:
		return "View task"
	}
}
