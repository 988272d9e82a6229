package service

import (
	"time"

	"go.uber.org/zap"
)

// Dispatcher is what the auth flows see: hand over a message and move
// on. Registration latency must never depend on an SMTP round trip.
type Dispatcher interface {
	Enqueue(to, subject, body string)
}

type mailJob struct {
	To      string
	Subject string
	Body    string
}

// MailQueue runs a small worker pool draining queued messages into the
// Mailer. Delivery failures are retried once and then only logged, the
// request that queued the mail is long gone by then.
type MailQueue struct {
	jobs    chan *mailJob
	mailer  Mailer
	workers int
}

var _ Dispatcher = (*MailQueue)(nil)

func NewMailQueue(m Mailer, workers int) *MailQueue {
	if workers <= 0 {
		workers = 2
	}

	return &MailQueue{
		jobs:    make(chan *mailJob, 64),
		mailer:  m,
		workers: workers,
	}
}

func (q *MailQueue) StartWorkerPool() {
	for range q.workers {
		go q.worker()
	}
}

// Enqueue never blocks the caller. A full queue drops the message with
// a log entry; the user can hit resend.
func (q *MailQueue) Enqueue(to, subject, body string) {
	select {
	case q.jobs <- &mailJob{To: to, Subject: subject, Body: body}:
	default:
		zap.L().Warn("Mail queue full, dropping message", zap.String("to", to))
	}
}

func (q *MailQueue) worker() {
	for job := range q.jobs {
		err := q.mailer.Send(job.To, job.Subject, job.Body)
		if err == nil {
			continue
		}

		zap.L().Warn("Mail delivery failed, retrying once",
			zap.Error(err),
			zap.String("to", job.To),
		)

		time.Sleep(time.Second * 2)

		if err := q.mailer.Send(job.To, job.Subject, job.Body); err != nil {
			zap.L().Error("Mail delivery failed permanently",
				zap.Error(err),
				zap.String("to", job.To),
			)
		}
	}
}
