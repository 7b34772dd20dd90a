package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const noticeDateLayout = "02/01/2006"

var monthNames = [...]string{
	"", "janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// TeacherSnapshot is the plain teacher data carried by a credentials notice.
type TeacherSnapshot struct {
	Name     string
	NIF      string
	Email    string
	Username string
}

// EvaluationSummary is the plain evaluation data carried by evaluation and signature notices.
type EvaluationSummary struct {
	ID                  uint
	TeacherName         string
	CourseName          string
	EvaluatorName       string
	Period              string
	Date                time.Time
	PlanningPercentage  float64
	ClassPercentage     float64
	GeneralObservations string
	Report              []byte
}

// ScheduleSnapshot is the plain schedule data carried by a schedule notice.
type ScheduleSnapshot struct {
	TeacherName  string
	TeacherEmail string
	CourseName   string
	UnitName     string
	SemesterName string
	Month        int
	Date         *time.Time
	Notes        string
}

// Notifier hands best-effort messages to the notification queue. Every method reports whether the
// message was accepted; none of them block on delivery or return an error.
type Notifier interface {
	SendCredentials(ctx context.Context, email string, teacher TeacherSnapshot, password string) bool
	SendEvaluationNotice(ctx context.Context, email string, summary EvaluationSummary) bool
	SendScheduleNotice(ctx context.Context, slot ScheduleSnapshot) bool
	SendSignatureNotice(ctx context.Context, evaluatorEmail string, summary EvaluationSummary) bool
}

type queueNotifier struct {
	queue   NotificationQueue
	appName string
	logger  zerolog.Logger
}

// NewNotifier builds a notifier that formats messages and enqueues them.
func NewNotifier(queue NotificationQueue, appName string, logger zerolog.Logger) Notifier {
	return &queueNotifier{
		queue:   queue,
		appName: appName,
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *queueNotifier) SendCredentials(ctx context.Context, email string, teacher TeacherSnapshot, password string) bool {
	var body strings.Builder
	fmt.Fprintf(&body, "Prezado(a) %s,\n\n", teacher.Name)
	fmt.Fprintf(&body, "Seu acesso ao sistema %s foi criado.\n\n", n.appName)
	fmt.Fprintf(&body, "NIF: %s\nUsuário: %s\nSenha: %s\n\n", teacher.NIF, teacher.Username, password)
	body.WriteString("Recomendamos alterar a senha no primeiro acesso.\n\n")
	body.WriteString("Atenciosamente,\nCoordenação Pedagógica\n")

	task := newNotificationTask(NotificationCredentials, "Credenciais de acesso", body.String(),
		NotificationRecipient{Name: teacher.Name, Email: email})
	return n.enqueue(ctx, task)
}

func (n *queueNotifier) SendEvaluationNotice(ctx context.Context, email string, summary EvaluationSummary) bool {
	date := summary.Date.Format(noticeDateLayout)
	observations := strings.TrimSpace(summary.GeneralObservations)
	if observations == "" {
		observations = "Nenhuma observação adicional."
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Prezado(a) %s,\n\n", summary.TeacherName)
	body.WriteString("Seu acompanhamento docente foi finalizado com as seguintes informações:\n\n")
	fmt.Fprintf(&body, "Curso: %s\nData: %s\nPeríodo: %s\nAvaliador: %s\n\n", summary.CourseName, date, summary.Period, summary.EvaluatorName)
	fmt.Fprintf(&body, "Planejamento: %.1f%% atendido\n", summary.PlanningPercentage)
	fmt.Fprintf(&body, "Condução da aula: %.1f%% atendido\n\n", summary.ClassPercentage)
	fmt.Fprintf(&body, "Observações gerais:\n%s\n\n", observations)
	body.WriteString("Atenciosamente,\nCoordenação Pedagógica\n")

	task := newNotificationTask(NotificationEvaluation, "Relatório de Acompanhamento Docente - "+date, body.String(),
		NotificationRecipient{Name: summary.TeacherName, Email: email})
	if len(summary.Report) > 0 {
		task.Attachments = append(task.Attachments, NotificationAttachment{
			Filename:    "relatorio_" + strings.ReplaceAll(summary.TeacherName, " ", "_") + ".pdf",
			ContentType: "application/pdf",
			Content:     summary.Report,
		})
	}
	return n.enqueue(ctx, task)
}

func (n *queueNotifier) SendScheduleNotice(ctx context.Context, slot ScheduleSnapshot) bool {
	when := monthName(slot.Month)
	if slot.Date != nil {
		when = slot.Date.Format(noticeDateLayout)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Prezado(a) %s,\n\n", slot.TeacherName)
	body.WriteString("Um acompanhamento docente foi agendado:\n\n")
	fmt.Fprintf(&body, "Curso: %s\nUnidade curricular: %s\nSemestre: %s\nPrevisão: %s\n", slot.CourseName, slot.UnitName, slot.SemesterName, when)
	if notes := strings.TrimSpace(slot.Notes); notes != "" {
		fmt.Fprintf(&body, "\nObservações:\n%s\n", notes)
	}
	body.WriteString("\nAtenciosamente,\nCoordenação Pedagógica\n")

	task := newNotificationTask(NotificationSchedule, "Acompanhamento docente agendado", body.String(),
		NotificationRecipient{Name: slot.TeacherName, Email: slot.TeacherEmail})
	return n.enqueue(ctx, task)
}

func (n *queueNotifier) SendSignatureNotice(ctx context.Context, evaluatorEmail string, summary EvaluationSummary) bool {
	var body strings.Builder
	fmt.Fprintf(&body, "Prezado(a) %s,\n\n", summary.EvaluatorName)
	fmt.Fprintf(&body, "O(a) docente %s assinou o acompanhamento de %s (%s).\n\n",
		summary.TeacherName, summary.Date.Format(noticeDateLayout), summary.CourseName)
	body.WriteString("O acompanhamento aguarda a assinatura do avaliador para ser finalizado.\n\n")
	body.WriteString("Atenciosamente,\nCoordenação Pedagógica\n")

	task := newNotificationTask(NotificationSignature, "Acompanhamento assinado pelo docente", body.String(),
		NotificationRecipient{Name: summary.EvaluatorName, Email: evaluatorEmail})
	return n.enqueue(ctx, task)
}

func (n *queueNotifier) enqueue(ctx context.Context, task NotificationTask) bool {
	log := n.logger.With().Str("kind", task.Kind).Str("task_id", task.ID).Logger()
	if len(task.To) == 0 {
		log.Debug().Msg("notification skipped: no recipient address")
		return false
	}
	if n.queue == nil {
		log.Warn().Msg("notification skipped: queue not configured")
		return false
	}
	if err := n.queue.Enqueue(ctx, task); err != nil {
		log.Warn().Err(err).Msg("failed to enqueue notification")
		return false
	}
	return true
}

func monthName(month int) string {
	if month < 1 || month >= len(monthNames) {
		return fmt.Sprintf("mês %d", month)
	}
	return monthNames[month]
}
