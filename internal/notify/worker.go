package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sessionworks/bookings/internal/platform/mailer"
	"github.com/sessionworks/bookings/pkg/events"
	"github.com/sessionworks/bookings/pkg/logger"
)

const queueGroup = "notify"

// Worker consumes notification events off the bus and sends email. It sits
// entirely outside the transactional write paths: a slow or failing mail
// provider only ever produces log lines here.
type Worker struct {
	bus           events.Subscriber
	mailer        mailer.Service
	operatorEmail string
	fromName      string
}

func New(bus events.Subscriber, m mailer.Service, operatorEmail, fromName string) *Worker {
	return &Worker{
		bus:           bus,
		mailer:        m,
		operatorEmail: operatorEmail,
		fromName:      fromName,
	}
}

// Run subscribes to all notification subjects and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	subs := map[string]func(msg *events.Message){
		events.BookingCreated:  w.onBookingCreated,
		events.BookingDecided:  w.onBookingDecided,
		events.ReviewSubmitted: w.onReviewSubmitted,
		events.ReviewPublished: w.onReviewPublished,
	}

	for subject, handler := range subs {
		if err := w.bus.QueueSubscribe(subject, queueGroup, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	logger.Info("Notify worker started", "queue", queueGroup)
	<-ctx.Done()
	return nil
}

func (w *Worker) onBookingCreated(msg *events.Message) {
	var e events.BookingCreatedEvent
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		logger.Error("Failed to decode booking created event", "error", err)
		return
	}

	subject := "Your session request was received"
	text := fmt.Sprintf(
		"Hi %s,\n\nYour free session on %s (%d minutes) was received and is awaiting confirmation.\nWe will email you once it has been reviewed.\n\n%s",
		e.Name, e.StartsAt.Format("Mon, 2 Jan 2006 15:04 MST"), e.DurationMinutes, w.fromName,
	)
	w.send(e.Email, e.Name, subject, text)

	if w.operatorEmail != "" {
		opText := fmt.Sprintf(
			"New booking %s\nName: %s\nEmail: %s\nDiscord: %s\nStarts: %s\nDuration: %d min",
			e.BookingID, e.Name, e.Email, e.DiscordName,
			e.StartsAt.Format("Mon, 2 Jan 2006 15:04 MST"), e.DurationMinutes,
		)
		w.send(w.operatorEmail, "", "New booking request", opText)
	}
}

func (w *Worker) onBookingDecided(msg *events.Message) {
	var e events.BookingDecidedEvent
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		logger.Error("Failed to decode booking decided event", "error", err)
		return
	}

	var subject, text string
	if e.Status == "confirmed" {
		subject = "Your session is confirmed"
		text = fmt.Sprintf("Hi %s,\n\nYour session on %s is confirmed. See you there!\n\n%s",
			e.Name, e.StartsAt.Format("Mon, 2 Jan 2006 15:04 MST"), w.fromName)
	} else {
		subject = "About your session request"
		text = fmt.Sprintf("Hi %s,\n\nUnfortunately we could not confirm your session on %s.\nFeel free to pick another time.\n\n%s",
			e.Name, e.StartsAt.Format("Mon, 2 Jan 2006 15:04 MST"), w.fromName)
	}
	w.send(e.Email, e.Name, subject, text)
}

func (w *Worker) onReviewSubmitted(msg *events.Message) {
	var e events.ReviewSubmittedEvent
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		logger.Error("Failed to decode review submitted event", "error", err)
		return
	}

	subject := "Confirm your review"
	text := fmt.Sprintf(
		"Hi %s,\n\nThanks for your review! Please confirm your email address by opening this link:\n\n%s\n\nThe link works exactly once.\n\n%s",
		e.Name, e.VerifyURL, w.fromName,
	)
	w.send(e.Email, e.Name, subject, text)
}

func (w *Worker) onReviewPublished(msg *events.Message) {
	var e events.ReviewPublishedEvent
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		logger.Error("Failed to decode review published event", "error", err)
		return
	}

	subject := "Your review is live"
	text := fmt.Sprintf("Hi %s,\n\nYour review has been published. Thank you!\n\n%s", e.Name, w.fromName)
	w.send(e.Email, e.Name, subject, text)
}

func (w *Worker) send(toEmail, toName, subject, text string) {
	if _, err := w.mailer.Send(toEmail, toName, subject, text, ""); err != nil {
		logger.Error("Failed to send notification email",
			"error", err,
			"to", toEmail,
			"subject", subject,
		)
	}
}
