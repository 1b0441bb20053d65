package app

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"expense_reminder/internal/domain/expense"
	"expense_reminder/internal/domain/notifier"
	"expense_reminder/internal/domain/user"
)

const reminderHTML = `<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h2 style="color: #1a73e8;">Subscription Renewal Alert</h2>
    <p>Hi {{.Username}},</p>
    <p>Your subscription <strong>{{.Name}}</strong> is renewing in {{.LeadDays}} days!</p>
    <div style="background-color: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0;">
      <p><strong>Subscription Details:</strong></p>
      <ul>
        <li><strong>Service:</strong> {{.Name}}</li>
        <li><strong>Category:</strong> {{.Category}}</li>
        <li><strong>Amount:</strong> ${{.Amount}}</li>
        <li><strong>Renewal Date:</strong> {{.RenewalDate}}</li>
      </ul>
    </div>
    <p style="background-color: #fff3cd; padding: 15px; border-left: 4px solid #ffc107; border-radius: 3px;">
      <strong>Action Required:</strong> Do you still need this subscription? If not, this is a great time to cancel before the renewal.
    </p>
    {{- if .DashboardURL}}
    <p>Manage your expenses in the dashboard: <a href="{{.DashboardURL}}">Your Spend Manager</a></p>
    {{- end}}
    <hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
    <p style="color: #666; font-size: 12px;">This is an automated reminder from your Spend Manager.</p>
  </body>
</html>
`

const reminderText = `Subscription Renewal Alert

Hi {{.Username}},

Your subscription {{.Name}} is renewing in {{.LeadDays}} days!

Subscription Details:
- Service: {{.Name}}
- Category: {{.Category}}
- Amount: ${{.Amount}}
- Renewal Date: {{.RenewalDate}}

ACTION REQUIRED: Do you still need this subscription? If not, this is a great time to cancel before the renewal.
{{- if .DashboardURL}}

Manage your expenses in the dashboard: {{.DashboardURL}}
{{- end}}
`

type reminderView struct {
	Username     string
	Name         string
	Category     string
	Amount       string
	RenewalDate  string
	LeadDays     int
	DashboardURL string
}

// MessageRenderer builds the renewal reminder message for an expense.
type MessageRenderer struct {
	html         *htmltemplate.Template
	text         *texttemplate.Template
	leadDays     int
	dashboardURL string
}

func NewMessageRenderer(leadDays int, dashboardURL string) *MessageRenderer {
	return &MessageRenderer{
		html:         htmltemplate.Must(htmltemplate.New("reminder_html").Parse(reminderHTML)),
		text:         texttemplate.Must(texttemplate.New("reminder_text").Parse(reminderText)),
		leadDays:     leadDays,
		dashboardURL: dashboardURL,
	}
}

// Render fills the templates for owner and e.
func (r *MessageRenderer) Render(owner *user.User, e *expense.Expense) (notifier.Message, error) {
	view := reminderView{
		Username:     owner.Username,
		Name:         e.Name,
		Category:     e.Category,
		Amount:       e.Amount.StringFixed(2),
		RenewalDate:  e.RenewalDate.Format("January 02, 2006"),
		LeadDays:     r.leadDays,
		DashboardURL: r.dashboardURL,
	}

	var htmlBody, textBody bytes.Buffer
	if err := r.html.Execute(&htmlBody, view); err != nil {
		return notifier.Message{}, fmt.Errorf("render html body: %w", err)
	}
	if err := r.text.Execute(&textBody, view); err != nil {
		return notifier.Message{}, fmt.Errorf("render text body: %w", err)
	}

	to := notifier.Recipient{Name: owner.Username, Email: owner.Email}
	if owner.TelegramChatID.Valid {
		to.TelegramChatID = owner.TelegramChatID.Int64
	}
	return notifier.Message{
		To:       to,
		Subject:  fmt.Sprintf("Subscription Renewal Alert: %s", e.Name),
		HTMLBody: htmlBody.String(),
		TextBody: textBody.String(),
	}, nil
}
