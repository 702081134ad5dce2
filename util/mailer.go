package util

import (
	"fmt"
	"net/smtp"
	"sync"
)

// Mail is one outbound message. Bodies are HTML.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// MailSender delivers a single message synchronously.
type MailSender interface {
	Send(mail Mail) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string
	From string
	Auth smtp.Auth
}

func (s *SMTPSender) Send(mail Mail) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.From, mail.To, mail.Subject, mail.Body)
	return smtp.SendMail(s.Addr, s.Auth, s.From, []string{mail.To}, []byte(msg))
}

// MailerPool runs a bounded background worker pool for outbound mail.
// Delivery is at-most-once with no retry: a full queue drops the message,
// observable only through the audit log, never through the caller's
// response.
type MailerPool struct {
	sender MailSender
	jobs   chan Mail
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewMailerPool creates a pool with the given queue capacity. Start must be
// called before Submit delivers anything.
func NewMailerPool(sender MailSender, queueSize int) *MailerPool {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &MailerPool{
		sender: sender,
		jobs:   make(chan Mail, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *MailerPool) Start(workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for mail := range p.jobs {
				if err := p.sender.Send(mail); err != nil {
					LogAuditEvent(AuditEvent{
						EventType: EventMailDropped,
						Email:     mail.To,
						Message:   fmt.Sprintf("Mail delivery failed: %v", err),
					})
				}
			}
		}()
	}
}

// Submit enqueues a message without blocking. Returns false if the message
// was dropped because the queue is full or the pool is closed.
func (p *MailerPool) Submit(mail Mail) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- mail:
		return true
	default:
		LogAuditEvent(AuditEvent{
			EventType: EventMailDropped,
			Email:     mail.To,
			Message:   "Mail queue full, message dropped",
		})
		return false
	}
}

// Close stops accepting mail and waits for in-flight deliveries.
func (p *MailerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

var mailerPool *MailerPool

// SetMailerPool installs the pool used by QueueMail. Call during startup or
// from tests.
func SetMailerPool(pool *MailerPool) {
	mailerPool = pool
}

// QueueMail submits a message to the background pool, best-effort. With no
// pool configured the message is dropped with an audit line.
func QueueMail(mail Mail) {
	if mailerPool == nil {
		LogAuditEvent(AuditEvent{
			EventType: EventMailDropped,
			Email:     mail.To,
			Message:   "No mailer configured, message dropped",
		})
		return
	}
	mailerPool.Submit(mail)
}

// VerificationCodeMail composes the account-activation message.
func VerificationCodeMail(to, name, code string) Mail {
	return Mail{
		To:      to,
		Subject: "Your verification code",
		Body: fmt.Sprintf("<p>Hi %s,</p><p>Your verification code is <b>%s</b>. It expires in 5 minutes.</p>",
			name, code),
	}
}

// AssociationNoticeMail composes the notice sent to a patient when a doctor
// links to their record.
func AssociationNoticeMail(to, patientName, doctorName string) Mail {
	return Mail{
		To:      to,
		Subject: "A doctor has been linked to your record",
		Body: fmt.Sprintf("<p>Hi %s,</p><p>Dr. %s is now associated with your medical record.</p>",
			patientName, doctorName),
	}
}
