package handler_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/handler"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/service"
)

type mockEvaluationService struct {
	service.EvaluationService

	lastList       dto.EvaluationListRequest
	lastCreate     dto.EvaluationCreateRequest
	lastActor      service.ActivityActor
	attachmentName string
	attachmentBody string
	getErr         error
}

func (m *mockEvaluationService) List(_ context.Context, actor service.ActivityActor, req dto.EvaluationListRequest) (dto.EvaluationListResponse, error) {
	m.lastActor = actor
	m.lastList = req
	return dto.EvaluationListResponse{Items: []dto.EvaluationResponse{}, Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, 0)}, nil
}

func (m *mockEvaluationService) Get(_ context.Context, actor service.ActivityActor, id uint) (dto.EvaluationResponse, error) {
	m.lastActor = actor
	if m.getErr != nil {
		return dto.EvaluationResponse{}, m.getErr
	}
	return dto.EvaluationResponse{ID: id, SignatureState: string(models.SignatureStateUnsigned)}, nil
}

func (m *mockEvaluationService) Create(_ context.Context, actor service.ActivityActor, req dto.EvaluationCreateRequest) (dto.EvaluationResponse, error) {
	m.lastActor = actor
	m.lastCreate = req
	return dto.EvaluationResponse{ID: 11, TeacherID: req.TeacherID}, nil
}

func (m *mockEvaluationService) AddAttachment(_ context.Context, _ service.ActivityActor, _ uint, filename string, r io.Reader) (dto.AttachmentResponse, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return dto.AttachmentResponse{}, err
	}
	m.attachmentName = filename
	m.attachmentBody = string(body)
	if filename == "script.exe" {
		return dto.AttachmentResponse{}, service.ErrAttachmentTypeNotAllowed
	}
	return dto.AttachmentResponse{ID: 5, OriginalFilename: filename, FileSize: int64(len(body))}, nil
}

type mockSignatureService struct {
	service.SignatureService

	lastRequest dto.SignRequest
	lastIP      string
	lastActor   service.ActivityActor
	err         error
}

func (m *mockSignatureService) Sign(_ context.Context, actor service.ActivityActor, evaluationID uint, req dto.SignRequest, clientIP string) (dto.EvaluationResponse, error) {
	m.lastActor = actor
	m.lastRequest = req
	m.lastIP = clientIP
	if m.err != nil {
		return dto.EvaluationResponse{}, m.err
	}
	return dto.EvaluationResponse{ID: evaluationID, TeacherSigned: true, SignatureState: string(models.SignatureStateTeacherSigned)}, nil
}

type mockReportService struct {
	service.ReportService

	lastTeacher uint
	lastFrom    string
	lastTo      string
}

func (m *mockReportService) EvaluationPDF(_ context.Context, _ service.ActivityActor, _ uint) (service.Report, error) {
	return service.Report{Filename: "avaliacao-11.pdf", Content: []byte("%PDF-1.3")}, nil
}

func (m *mockReportService) ConsolidatedPDF(_ context.Context, _ service.ActivityActor, teacherID uint, from, to *time.Time) (service.Report, error) {
	m.lastTeacher = teacherID
	if from != nil {
		m.lastFrom = from.Format(dto.DateLayout)
	}
	if to != nil {
		m.lastTo = to.Format(dto.DateLayout)
	}
	return service.Report{Filename: "consolidado.pdf", Content: []byte("%PDF-1.3")}, nil
}

func newEvaluationApp(userID uint, role string) (*fiber.App, *mockEvaluationService, *mockSignatureService) {
	evaluations := &mockEvaluationService{}
	signatures := &mockSignatureService{}
	app := appAs(userID, role)
	handler.NewEvaluationHandler(evaluations, signatures, &mockReportService{}, testLogger()).Register(app.Group("/evaluations"))
	return app, evaluations, signatures
}

func TestEvaluationHandlerListParsesFilters(t *testing.T) {
	app, evaluations, _ := newEvaluationApp(8, models.RoleTeacher)

	resp, _ := perform(t, app, jsonRequest(t, http.MethodGet, "/evaluations?teacher_id=3&semester_id=2&completed=true&page=2&page_size=500", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, uint(3), evaluations.lastList.TeacherID)
	require.Equal(t, uint(2), evaluations.lastList.SemesterID)
	require.NotNil(t, evaluations.lastList.Completed)
	require.True(t, *evaluations.lastList.Completed)
	require.Equal(t, 2, evaluations.lastList.Page)
	require.Equal(t, 200, evaluations.lastList.PageSize)
	require.Equal(t, models.RoleTeacher, evaluations.lastActor.Role)

	resp, _ = perform(t, app, jsonRequest(t, http.MethodGet, "/evaluations?completed=maybe", nil))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvaluationHandlerCreateRequiresStaff(t *testing.T) {
	app, evaluations, _ := newEvaluationApp(8, models.RoleTeacher)
	req := dto.EvaluationCreateRequest{TeacherID: 1, CourseID: 1, EvaluationDate: "2025-03-15", Period: "Noturno"}

	resp, _ := perform(t, app, jsonRequest(t, http.MethodPost, "/evaluations", req))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Zero(t, evaluations.lastCreate.TeacherID)

	app, evaluations, _ = newEvaluationApp(2, models.RoleEvaluator)
	resp, env := perform(t, app, jsonRequest(t, http.MethodPost, "/evaluations", req))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, uint(1), evaluations.lastCreate.TeacherID)

	var created dto.EvaluationResponse
	decodeData(t, env, &created)
	require.Equal(t, uint(11), created.ID)
}

func TestEvaluationHandlerGetForbiddenForOtherTeacher(t *testing.T) {
	app, evaluations, _ := newEvaluationApp(8, models.RoleTeacher)
	evaluations.getErr = service.ErrForbidden

	resp, _ := perform(t, app, jsonRequest(t, http.MethodGet, "/evaluations/4", nil))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEvaluationHandlerSignRecordsClientIP(t *testing.T) {
	app, _, signatures := newEvaluationApp(8, models.RoleTeacher)

	req := jsonRequest(t, http.MethodPost, "/evaluations/4/sign", dto.SignRequest{SignatureImage: "data:image/png;base64,iVBORw0KGgo="})
	resp, env := perform(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "data:image/png;base64,iVBORw0KGgo=", signatures.lastRequest.SignatureImage)
	require.NotEmpty(t, signatures.lastIP)
	require.Equal(t, uint(8), signatures.lastActor.ID)

	var signed dto.EvaluationResponse
	decodeData(t, env, &signed)
	require.True(t, signed.TeacherSigned)
}

func TestEvaluationHandlerSignWithoutBody(t *testing.T) {
	app, _, signatures := newEvaluationApp(2, models.RoleEvaluator)

	resp, _ := perform(t, app, jsonRequest(t, http.MethodPost, "/evaluations/4/sign", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, signatures.lastRequest.SignatureImage)
}

func TestEvaluationHandlerSignTwiceConflicts(t *testing.T) {
	app, _, signatures := newEvaluationApp(8, models.RoleTeacher)
	signatures.err = service.ErrAlreadySigned

	resp, env := perform(t, app, jsonRequest(t, http.MethodPost, "/evaluations/4/sign", nil))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, service.ErrAlreadySigned.Error(), env.Message)
}

func TestEvaluationHandlerUploadsAttachment(t *testing.T) {
	app, evaluations, _ := newEvaluationApp(2, models.RoleEvaluator)

	resp, env := perform(t, app, multipartRequest(t, "/evaluations/4/attachments", "plano.pdf", []byte("%PDF-1.4 plano")))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "plano.pdf", evaluations.attachmentName)
	require.Equal(t, "%PDF-1.4 plano", evaluations.attachmentBody)

	var attachment dto.AttachmentResponse
	decodeData(t, env, &attachment)
	require.Equal(t, uint(5), attachment.ID)

	resp, _ = perform(t, app, multipartRequest(t, "/evaluations/4/attachments", "script.exe", []byte("MZ")))
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = perform(t, app, jsonRequest(t, http.MethodPost, "/evaluations/4/attachments", nil))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvaluationHandlerPDF(t *testing.T) {
	app, _, _ := newEvaluationApp(8, models.RoleTeacher)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/evaluations/11/pdf", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "avaliacao-11.pdf")
}

func TestEvaluationHandlerRequiresUser(t *testing.T) {
	app, _, _ := newEvaluationApp(0, "")

	resp, _ := perform(t, app, jsonRequest(t, http.MethodGet, "/evaluations", nil))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
