package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
	"github.com/noah-isme/acompanha-api/pkg/pdf"
)

// Report is a rendered document ready to be streamed.
type Report struct {
	Filename string
	Content  []byte
}

// ReportService renders evaluation documents.
type ReportService interface {
	EvaluationPDF(ctx context.Context, actor ActivityActor, evaluationID uint) (Report, error)
	// ConsolidatedPDF summarises a teacher's evaluations in the inclusive date range. It fails with
	// ErrReportEmpty when no evaluation falls in the range.
	ConsolidatedPDF(ctx context.Context, actor ActivityActor, teacherID uint, from, to *time.Time) (Report, error)
}

type reportService struct {
	evaluations EvaluationService
	repo        repository.EvaluationRepository
	teachers    repository.TeacherRepository
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(evaluations EvaluationService, repo repository.EvaluationRepository, teachers repository.TeacherRepository, logger zerolog.Logger) ReportService {
	return &reportService{
		evaluations: evaluations,
		repo:        repo,
		teachers:    teachers,
		logger:      logger.With().Str("component", "report_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/acompanha-api/internal/service/report"),
		now:         time.Now,
	}
}

func (s *reportService) EvaluationPDF(ctx context.Context, actor ActivityActor, evaluationID uint) (Report, error) {
	ctx, span := s.tracer.Start(ctx, "reports.evaluation", trace.WithAttributes(attribute.Int("evaluation.id", int(evaluationID))))
	defer span.End()

	// Visibility rules live in the evaluation service.
	if _, err := s.evaluations.Get(ctx, actor, evaluationID); err != nil {
		return Report{}, err
	}
	evaluation, err := s.repo.GetByID(ctx, evaluationID)
	if err != nil {
		return Report{}, err
	}

	content, err := pdf.RenderEvaluation(evaluationReport(evaluation, s.now()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render evaluation report")
		return Report{}, err
	}
	name := "acompanhamento"
	if evaluation.Teacher != nil {
		name = fileSlug(evaluation.Teacher.Name)
	}
	return Report{
		Filename: fmt.Sprintf("relatorio_%s_%s.pdf", name, evaluation.EvaluationDate.Format("20060102")),
		Content:  content,
	}, nil
}

func (s *reportService) ConsolidatedPDF(ctx context.Context, actor ActivityActor, teacherID uint, from, to *time.Time) (Report, error) {
	if from != nil && to != nil && from.After(*to) {
		return Report{}, ErrInvalidDateRange
	}

	ctx, span := s.tracer.Start(ctx, "reports.consolidated", trace.WithAttributes(attribute.Int("teacher.id", int(teacherID))))
	defer span.End()

	teacher, err := s.teachers.GetByID(ctx, teacherID)
	if err != nil {
		if isNotFound(err) {
			return Report{}, ErrTeacherNotFound
		}
		return Report{}, err
	}
	if actor.Role == models.RoleTeacher && (teacher.UserID == nil || *teacher.UserID != actor.ID) {
		return Report{}, ErrForbidden
	}

	evaluations, _, err := s.repo.List(ctx, repository.EvaluationFilter{TeacherID: &teacherID, From: from, To: to})
	if err != nil {
		return Report{}, err
	}
	if len(evaluations) == 0 {
		return Report{}, ErrReportEmpty
	}

	report := consolidatedReport(teacher, evaluations, from, to, s.now())
	content, err := pdf.RenderConsolidated(report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render consolidated report")
		return Report{}, err
	}
	return Report{Filename: fmt.Sprintf("relatorio_consolidado_%s.pdf", fileSlug(teacher.Name)), Content: content}, nil
}

func consolidatedReport(teacher models.Teacher, evaluations []models.Evaluation, from, to *time.Time, now time.Time) pdf.ConsolidatedReport {
	sorted := append([]models.Evaluation(nil), evaluations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EvaluationDate.After(sorted[j].EvaluationDate)
	})

	report := pdf.ConsolidatedReport{
		TeacherName: teacher.Name,
		TeacherNIF:  teacher.NIF,
		Area:        teacher.Area,
		From:        from,
		To:          to,
		GeneratedAt: now,
	}
	planning := make([]float64, 0, len(sorted))
	class := make([]float64, 0, len(sorted))
	for _, evaluation := range sorted {
		row := pdf.ConsolidatedRow{
			Date:               evaluation.EvaluationDate,
			PlanningPercentage: evaluation.PlanningPercentage(),
			ClassPercentage:    evaluation.ClassPercentage(),
		}
		if evaluation.Course != nil {
			row.CourseName = evaluation.Course.Name
		}
		report.Rows = append(report.Rows, row)
		planning = append(planning, row.PlanningPercentage)
		class = append(class, row.ClassPercentage)
	}
	report.AveragePlanning = average(planning)
	report.AverageClass = average(class)
	return report
}

// evaluationReport flattens an evaluation with its preloaded relations into printable data.
func evaluationReport(evaluation models.Evaluation, now time.Time) pdf.EvaluationReport {
	report := pdf.EvaluationReport{
		Period:               evaluation.Period,
		ClassTime:            evaluation.ClassTime,
		Date:                 evaluation.EvaluationDate,
		PlanningPercentage:   evaluation.PlanningPercentage(),
		ClassPercentage:      evaluation.ClassPercentage(),
		PlanningObservations: evaluation.PlanningObservations,
		ClassObservations:    evaluation.ClassObservations,
		GeneralObservations:  evaluation.GeneralObservations,
		TeacherSignedAt:      evaluation.TeacherSignatureDate,
		EvaluatorSignedAt:    evaluation.EvaluatorSignatureDate,
		GeneratedAt:          now,
	}
	if evaluation.Teacher != nil {
		report.TeacherName = evaluation.Teacher.Name
		report.TeacherNIF = evaluation.Teacher.NIF
	}
	if evaluation.Course != nil {
		report.CourseName = evaluation.Course.Name
	}
	if evaluation.CurricularUnit != nil {
		report.CurricularUnit = evaluation.CurricularUnit.Name
	}
	if evaluation.Evaluator != nil {
		report.EvaluatorName = evaluation.Evaluator.Name
	}
	for _, item := range evaluation.ChecklistItems {
		line := pdf.ChecklistLine{Category: item.Category, Label: item.Label, Value: item.Value}
		switch item.Category {
		case models.CategoryPlanning:
			report.PlanningItems = append(report.PlanningItems, line)
		case models.CategoryClass:
			report.ClassItems = append(report.ClassItems, line)
		}
	}
	return report
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func fileSlug(name string) string {
	slug := strings.Join(strings.Fields(strings.TrimSpace(name)), "_")
	if slug == "" {
		return "docente"
	}
	return slug
}
