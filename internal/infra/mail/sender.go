package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

var syncFailureTemplate = template.Must(template.New("sync_failure").Parse(`<h2>Kommo sync failed</h2>
<p>Run <b>{{.Report.RunID}}</b> ({{.Report.Mode}})</p>
<p>Started: {{.StartedAt}}</p>
<p>Failed after: {{.Duration}}</p>
<p><b>Error:</b> {{.Report.Error}}</p>
<table>
<tr><td>Users</td><td>{{.Report.Users}}</td></tr>
<tr><td>Pipelines</td><td>{{.Report.Pipelines}}</td></tr>
<tr><td>Leads written</td><td>{{.Report.LeadsWritten}}</td></tr>
<tr><td>Events written</td><td>{{.Report.EventsWritten}}</td></tr>
<tr><td>Skipped orphans</td><td>{{.Report.SkippedOrphans}}</td></tr>
<tr><td>Skipped existing</td><td>{{.Report.SkippedExisting}}</td></tr>
</table>
<p>Rows written before the failure stay committed.</p>
`))

func NewEmailSender(host string, port int, user, password, from, to string) *EmailSender {
	return &EmailSender{
		From:   from,
		To:     to,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

// NotifySyncFailure mails the failed run's report to the operator.
func (s *EmailSender) NotifySyncFailure(ctx context.Context, report *entity.SyncReport) error {
	m, err := s.buildSyncFailure(report)
	if err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send SMTP email: %w", err)
	}
	return nil
}

func (s *EmailSender) buildSyncFailure(report *entity.SyncReport) (*gomail.Message, error) {
	data := SyncFailureEmailData{
		Report:    report,
		Duration:  report.DurationString(),
		StartedAt: report.StartedAt.Format(time.RFC1123),
	}

	var body bytes.Buffer
	if err := syncFailureTemplate.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("❌ Kommo %s sync failed", report.Mode))
	m.SetBody("text/html", body.String())
	return m, nil
}
