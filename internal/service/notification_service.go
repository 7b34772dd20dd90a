package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/observability"
	mailer "github.com/noah-isme/acompanha-api/pkg/mail"
)

const (
	notificationBufferSize  = 64
	notificationSendTimeout = 30 * time.Second
	notificationQueueGroup  = "acompanha-notifications"
)

// Notification kinds carried on the queue.
const (
	NotificationCredentials = "credentials"
	NotificationEvaluation  = "evaluation_notice"
	NotificationSchedule    = "schedule_notice"
	NotificationSignature   = "signature_notice"
)

// ErrQueueFull is returned when the in-process queue cannot accept more tasks.
var ErrQueueFull = errors.New("notification queue is full")

// ErrQueueClosed is returned when enqueuing after shutdown.
var ErrQueueClosed = errors.New("notification queue is closed")

// NotificationRecipient is a plain name/address pair.
type NotificationRecipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NotificationAttachment is a file carried with a task.
type NotificationAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// NotificationTask is a self-contained snapshot of one outbound message. It never references
// persisted entities, so delivery is independent of the transaction that produced it.
type NotificationTask struct {
	ID          string                   `json:"id"`
	Kind        string                   `json:"kind"`
	To          []NotificationRecipient  `json:"to"`
	Subject     string                   `json:"subject"`
	Body        string                   `json:"body"`
	Attachments []NotificationAttachment `json:"attachments,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// NotificationQueue decouples message delivery from request handling.
type NotificationQueue interface {
	Enqueue(ctx context.Context, task NotificationTask) error
	Start(ctx context.Context)
}

func (t NotificationTask) message() mailer.Message {
	msg := mailer.Message{Subject: t.Subject, TextContent: t.Body}
	for _, to := range t.To {
		msg.To = append(msg.To, mail.Address{Name: to.Name, Address: to.Email})
	}
	for _, attachment := range t.Attachments {
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Content:     attachment.Content,
		})
	}
	return msg
}

// deliverTask sends one task. Failures are logged and counted, never retried.
func deliverTask(ctx context.Context, sender mailer.Sender, logger zerolog.Logger, task NotificationTask) {
	sendCtx, cancel := context.WithTimeout(ctx, notificationSendTimeout)
	defer cancel()

	log := logger.With().Str("task_id", task.ID).Str("kind", task.Kind).Logger()
	if err := sender.Send(sendCtx, task.message()); err != nil {
		observability.Notifications().WithLabelValues(task.Kind, "failed").Inc()
		log.Warn().Err(err).Msg("notification delivery failed")
		return
	}
	observability.Notifications().WithLabelValues(task.Kind, "sent").Inc()
	log.Debug().Msg("notification delivered")
}

// ChannelQueue delivers tasks with a fixed pool of in-process workers.
type ChannelQueue struct {
	sender  mailer.Sender
	logger  zerolog.Logger
	workers int
	tasks   chan NotificationTask

	startOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

// NewChannelQueue constructs an in-process queue served by the given number of workers.
func NewChannelQueue(sender mailer.Sender, workers int, logger zerolog.Logger) *ChannelQueue {
	if workers <= 0 {
		workers = 1
	}
	return &ChannelQueue{
		sender:  sender,
		logger:  logger.With().Str("component", "notification_queue").Logger(),
		workers: workers,
		tasks:   make(chan NotificationTask, notificationBufferSize),
	}
}

func (q *ChannelQueue) Enqueue(_ context.Context, task NotificationTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		observability.Notifications().WithLabelValues(task.Kind, "enqueued").Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChannelQueue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(ctx)
		}
	})
}

// Close stops accepting tasks and waits for queued ones to be delivered. Tasks left behind by
// workers whose context was cancelled are delivered here.
func (q *ChannelQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()

	for task := range q.tasks {
		deliverTask(context.Background(), q.sender, q.logger, task)
	}
}

func (q *ChannelQueue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			deliverTask(context.WithoutCancel(ctx), q.sender, q.logger, task)
		}
	}
}

// NATSQueue publishes tasks to a NATS subject and delivers them from a queue subscription, so
// any replica may pick up a task.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
	sender  mailer.Sender
	logger  zerolog.Logger
}

// NewNATSQueue constructs a queue backed by the NATS connection.
func NewNATSQueue(conn *nats.Conn, subject string, sender mailer.Sender, logger zerolog.Logger) *NATSQueue {
	return &NATSQueue{
		conn:    conn,
		subject: subject,
		sender:  sender,
		logger:  logger.With().Str("component", "notification_queue").Str("subject", subject).Logger(),
	}
}

func (q *NATSQueue) Enqueue(_ context.Context, task NotificationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := q.conn.Publish(q.subject, payload); err != nil {
		return err
	}
	observability.Notifications().WithLabelValues(task.Kind, "enqueued").Inc()
	return nil
}

func (q *NATSQueue) Start(ctx context.Context) {
	sub, err := q.conn.QueueSubscribe(q.subject, notificationQueueGroup, func(msg *nats.Msg) {
		var task NotificationTask
		if err := json.Unmarshal(msg.Data, &task); err != nil {
			q.logger.Warn().Err(err).Msg("invalid notification task payload")
			return
		}
		deliverTask(context.WithoutCancel(ctx), q.sender, q.logger, task)
	})
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to subscribe to notification subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			q.logger.Warn().Err(err).Msg("failed to drain notification subscription")
		}
	}()
}

func newNotificationTask(kind, subject, body string, to ...NotificationRecipient) NotificationTask {
	recipients := make([]NotificationRecipient, 0, len(to))
	for _, recipient := range to {
		if strings.TrimSpace(recipient.Email) == "" {
			continue
		}
		recipients = append(recipients, recipient)
	}
	return NotificationTask{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        recipients,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}
