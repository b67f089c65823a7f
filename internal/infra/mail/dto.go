package mail

import (
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

type SyncFailureEmailData struct {
	Report    *entity.SyncReport
	Duration  string
	StartedAt string
}

// Dialer sends messages; *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	From   string
	To     string
	dialer Dialer
}
