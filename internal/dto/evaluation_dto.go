package dto

import (
	"time"

	"github.com/noah-isme/acompanha-api/internal/models"
)

// ChecklistItemInput is a client-submitted checklist row. A nil ID creates a new row.
type ChecklistItemInput struct {
	ID           *uint  `json:"id"`
	Label        string `json:"label" validate:"required,max=500"`
	Category     string `json:"category" validate:"required,oneof=planning class"`
	Value        string `json:"value" validate:"omitempty,oneof=Sim Não 'Não se aplica'"`
	IsDefault    bool   `json:"is_default"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

// EvaluationCreateRequest captures a filled evaluation form.
type EvaluationCreateRequest struct {
	TeacherID             uint                   `json:"teacher_id" validate:"required"`
	CourseID              uint                   `json:"course_id" validate:"required"`
	EvaluatorID           uint                   `json:"evaluator_id"`
	CurricularUnitID      *uint                  `json:"curricular_unit_id"`
	SemesterID            *uint                  `json:"semester_id"`
	ScheduledEvaluationID *uint                  `json:"scheduled_evaluation_id"`
	EvaluationDate        string                 `json:"evaluation_date" validate:"required,datetime=2006-01-02"`
	Period                string                 `json:"period" validate:"required,max=20"`
	ClassTime             string                 `json:"class_time" validate:"omitempty,max=100"`
	Legacy                models.LegacyChecklist `json:"legacy"`
	PlanningObservations  string                 `json:"planning_observations" validate:"omitempty,max=5000"`
	ClassObservations     string                 `json:"class_observations" validate:"omitempty,max=5000"`
	GeneralObservations   string                 `json:"general_observations" validate:"omitempty,max=5000"`
	ChecklistItems        []ChecklistItemInput   `json:"checklist_items" validate:"omitempty,dive"`
}

// EvaluationUpdateRequest captures partial edits to an evaluation.
type EvaluationUpdateRequest struct {
	EvaluationDate       *string                 `json:"evaluation_date" validate:"omitempty,datetime=2006-01-02"`
	Period               *string                 `json:"period" validate:"omitempty,min=1,max=20"`
	ClassTime            *string                 `json:"class_time" validate:"omitempty,max=100"`
	Legacy               *models.LegacyChecklist `json:"legacy"`
	PlanningObservations *string                 `json:"planning_observations" validate:"omitempty,max=5000"`
	ClassObservations    *string                 `json:"class_observations" validate:"omitempty,max=5000"`
	GeneralObservations  *string                 `json:"general_observations" validate:"omitempty,max=5000"`
	ChecklistItems       []ChecklistItemInput    `json:"checklist_items" validate:"omitempty,dive"`
	DeleteItemIDs        []uint                  `json:"delete_item_ids"`
}

// EvaluationListRequest filters evaluation listings.
type EvaluationListRequest struct {
	Page        int
	PageSize    int
	TeacherID   uint
	EvaluatorID uint
	SemesterID  uint
	Completed   *bool
}

// ChecklistItemResponse serializes a checklist row.
type ChecklistItemResponse struct {
	ID           uint   `json:"id"`
	Label        string `json:"label"`
	Category     string `json:"category"`
	IsDefault    bool   `json:"is_default"`
	Value        string `json:"value"`
	DisplayOrder int    `json:"display_order"`
}

// AttachmentResponse serializes an attachment reference.
type AttachmentResponse struct {
	ID               uint      `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	URL              string    `json:"url"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// NewAttachmentResponse converts an attachment model.
func NewAttachmentResponse(attachment models.EvaluationAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:               attachment.ID,
		Filename:         attachment.Filename,
		OriginalFilename: attachment.OriginalFilename,
		URL:              attachment.FilePath,
		FileSize:         attachment.FileSize,
		MimeType:         attachment.MimeType,
		UploadedAt:       attachment.UploadedAt,
	}
}

// SignatureResponse serializes a recorded signature.
type SignatureResponse struct {
	ID            uint      `json:"id"`
	SignatureType string    `json:"signature_type"`
	UserID        uint      `json:"user_id"`
	SignatureURL  string    `json:"signature_url,omitempty"`
	IPAddress     string    `json:"ip_address"`
	SignedAt      time.Time `json:"signed_at"`
}

// NewSignatureResponse converts a signature model.
func NewSignatureResponse(signature models.DigitalSignature) SignatureResponse {
	return SignatureResponse{
		ID:            signature.ID,
		SignatureType: signature.SignatureType,
		UserID:        signature.UserID,
		SignatureURL:  signature.SignatureURL,
		IPAddress:     signature.IPAddress,
		SignedAt:      signature.SignedAt,
	}
}

// ScoreResponse reports a category percentage and the source it was computed from.
type ScoreResponse struct {
	Percentage float64 `json:"percentage"`
	Source     string  `json:"source"`
}

// EvaluationResponse serializes an evaluation with derived scores and signing state.
type EvaluationResponse struct {
	ID                     uint                    `json:"id"`
	TeacherID              uint                    `json:"teacher_id"`
	TeacherName            string                  `json:"teacher_name,omitempty"`
	CourseID               uint                    `json:"course_id"`
	CourseName             string                  `json:"course_name,omitempty"`
	EvaluatorID            uint                    `json:"evaluator_id"`
	EvaluatorName          string                  `json:"evaluator_name,omitempty"`
	CurricularUnitID       *uint                   `json:"curricular_unit_id"`
	CurricularUnitName     string                  `json:"curricular_unit_name,omitempty"`
	SemesterID             *uint                   `json:"semester_id"`
	ScheduledEvaluationID  *uint                   `json:"scheduled_evaluation_id"`
	EvaluationDate         string                  `json:"evaluation_date"`
	Period                 string                  `json:"period"`
	ClassTime              string                  `json:"class_time"`
	PlanningObservations   string                  `json:"planning_observations"`
	ClassObservations      string                  `json:"class_observations"`
	GeneralObservations    string                  `json:"general_observations"`
	Planning               ScoreResponse           `json:"planning"`
	Class                  ScoreResponse           `json:"class"`
	SignatureState         string                  `json:"signature_state"`
	TeacherSigned          bool                    `json:"teacher_signed"`
	TeacherSignatureDate   *time.Time              `json:"teacher_signature_date"`
	EvaluatorSigned        bool                    `json:"evaluator_signed"`
	EvaluatorSignatureDate *time.Time              `json:"evaluator_signature_date"`
	IsCompleted            bool                    `json:"is_completed"`
	CompletedAt            *time.Time              `json:"completed_at"`
	ChecklistItems         []ChecklistItemResponse `json:"checklist_items"`
	Attachments            []AttachmentResponse    `json:"attachments"`
	Signatures             []SignatureResponse     `json:"signatures"`
	CreatedAt              time.Time               `json:"created_at"`
}

// NewEvaluationResponse converts an evaluation model.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	resp := EvaluationResponse{
		ID:                     evaluation.ID,
		TeacherID:              evaluation.TeacherID,
		CourseID:               evaluation.CourseID,
		EvaluatorID:            evaluation.EvaluatorID,
		CurricularUnitID:       evaluation.CurricularUnitID,
		SemesterID:             evaluation.SemesterID,
		ScheduledEvaluationID:  evaluation.ScheduledEvaluationID,
		EvaluationDate:         evaluation.EvaluationDate.Format(DateLayout),
		Period:                 evaluation.Period,
		ClassTime:              evaluation.ClassTime,
		PlanningObservations:   evaluation.PlanningObservations,
		ClassObservations:      evaluation.ClassObservations,
		GeneralObservations:    evaluation.GeneralObservations,
		Planning:               newScoreResponse(evaluation, models.CategoryPlanning),
		Class:                  newScoreResponse(evaluation, models.CategoryClass),
		SignatureState:         string(evaluation.SignatureState()),
		TeacherSigned:          evaluation.TeacherSigned,
		TeacherSignatureDate:   evaluation.TeacherSignatureDate,
		EvaluatorSigned:        evaluation.EvaluatorSigned,
		EvaluatorSignatureDate: evaluation.EvaluatorSignatureDate,
		IsCompleted:            evaluation.IsCompleted,
		CompletedAt:            evaluation.CompletedAt,
		ChecklistItems:         make([]ChecklistItemResponse, 0, len(evaluation.ChecklistItems)),
		Attachments:            make([]AttachmentResponse, 0, len(evaluation.Attachments)),
		Signatures:             make([]SignatureResponse, 0, len(evaluation.Signatures)),
		CreatedAt:              evaluation.CreatedAt,
	}
	if evaluation.Teacher != nil {
		resp.TeacherName = evaluation.Teacher.Name
	}
	if evaluation.Course != nil {
		resp.CourseName = evaluation.Course.Name
	}
	if evaluation.Evaluator != nil {
		resp.EvaluatorName = evaluation.Evaluator.Name
	}
	if evaluation.CurricularUnit != nil {
		resp.CurricularUnitName = evaluation.CurricularUnit.Name
	}
	for _, item := range evaluation.ChecklistItems {
		resp.ChecklistItems = append(resp.ChecklistItems, ChecklistItemResponse{
			ID:           item.ID,
			Label:        item.Label,
			Category:     item.Category,
			IsDefault:    item.IsDefault,
			Value:        item.Value,
			DisplayOrder: item.DisplayOrder,
		})
	}
	for _, attachment := range evaluation.Attachments {
		resp.Attachments = append(resp.Attachments, NewAttachmentResponse(attachment))
	}
	for _, signature := range evaluation.Signatures {
		resp.Signatures = append(resp.Signatures, NewSignatureResponse(signature))
	}
	return resp
}

func newScoreResponse(evaluation models.Evaluation, category string) ScoreResponse {
	source := models.SourceFor(evaluation, category)
	return ScoreResponse{Percentage: models.Percentage(source), Source: source.Kind()}
}

// EvaluationListResponse wraps paginated evaluations.
type EvaluationListResponse struct {
	Items      []EvaluationResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// SignRequest carries an optional signature image as base64 or a data URL.
type SignRequest struct {
	SignatureImage string `json:"signature_image" validate:"omitempty,max=2000000"`
}

// ScheduleCreateRequest plans an evaluation slot.
type ScheduleCreateRequest struct {
	TeacherID        uint   `json:"teacher_id" validate:"required"`
	CurricularUnitID uint   `json:"curricular_unit_id" validate:"required"`
	SemesterID       *uint  `json:"semester_id"`
	ScheduledMonth   int    `json:"scheduled_month"`
	ScheduledDate    string `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	Notes            string `json:"notes" validate:"omitempty,max=2000"`
}

// ScheduleListRequest filters schedule listings.
type ScheduleListRequest struct {
	Page       int
	PageSize   int
	TeacherID  uint
	SemesterID uint
	Month      int
	Completed  *bool
}

// ScheduleResponse serializes a planned slot.
type ScheduleResponse struct {
	ID                 uint       `json:"id"`
	TeacherID          uint       `json:"teacher_id"`
	TeacherName        string     `json:"teacher_name,omitempty"`
	CurricularUnitID   uint       `json:"curricular_unit_id"`
	CurricularUnitName string     `json:"curricular_unit_name,omitempty"`
	CourseName         string     `json:"course_name,omitempty"`
	SemesterID         uint       `json:"semester_id"`
	SemesterName       string     `json:"semester_name,omitempty"`
	ScheduledMonth     int        `json:"scheduled_month"`
	ScheduledDate      *string    `json:"scheduled_date"`
	Notes              string     `json:"notes"`
	IsCompleted        bool       `json:"is_completed"`
	CompletedAt        *time.Time `json:"completed_at"`
	EvaluationID       *uint      `json:"evaluation_id"`
}

// NewScheduleResponse converts a schedule slot model.
func NewScheduleResponse(slot models.ScheduledEvaluation) ScheduleResponse {
	resp := ScheduleResponse{
		ID:               slot.ID,
		TeacherID:        slot.TeacherID,
		CurricularUnitID: slot.CurricularUnitID,
		SemesterID:       slot.SemesterID,
		ScheduledMonth:   slot.ScheduledMonth,
		Notes:            slot.Notes,
		IsCompleted:      slot.IsCompleted,
		CompletedAt:      slot.CompletedAt,
		EvaluationID:     slot.EvaluationID,
	}
	if slot.ScheduledDate != nil {
		date := slot.ScheduledDate.Format(DateLayout)
		resp.ScheduledDate = &date
	}
	if slot.Teacher != nil {
		resp.TeacherName = slot.Teacher.Name
	}
	if slot.CurricularUnit != nil {
		resp.CurricularUnitName = slot.CurricularUnit.Name
		if slot.CurricularUnit.Course != nil {
			resp.CourseName = slot.CurricularUnit.Course.Name
		}
	}
	if slot.Semester != nil {
		resp.SemesterName = slot.Semester.Name
	}
	return resp
}

// ScheduleListResponse wraps paginated schedule slots.
type ScheduleListResponse struct {
	Items      []ScheduleResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}
