package models

import "time"

// Evaluation is a filled-in classroom observation record for a teacher.
type Evaluation struct {
	ID                     uint                      `gorm:"primaryKey" json:"id"`
	TeacherID              uint                      `gorm:"not null;index" json:"teacher_id"`
	CourseID               uint                      `gorm:"not null;index" json:"course_id"`
	EvaluatorID            uint                      `gorm:"not null;index" json:"evaluator_id"`
	CurricularUnitID       *uint                     `gorm:"index" json:"curricular_unit_id"`
	SemesterID             *uint                     `gorm:"index" json:"semester_id"`
	ScheduledEvaluationID  *uint                     `gorm:"index" json:"scheduled_evaluation_id"`
	EvaluationDate         time.Time                 `gorm:"not null;index" json:"evaluation_date"`
	Period                 string                    `gorm:"size:20;not null" json:"period"`
	ClassTime              string                    `gorm:"size:100" json:"class_time"`
	Legacy                 LegacyChecklist           `gorm:"embedded" json:"legacy"`
	PlanningObservations   string                    `gorm:"type:text" json:"planning_observations"`
	ClassObservations      string                    `gorm:"type:text" json:"class_observations"`
	GeneralObservations    string                    `gorm:"type:text" json:"general_observations"`
	TeacherSigned          bool                      `gorm:"not null;default:false" json:"teacher_signed"`
	TeacherSignatureDate   *time.Time                `json:"teacher_signature_date"`
	EvaluatorSigned        bool                      `gorm:"not null;default:false" json:"evaluator_signed"`
	EvaluatorSignatureDate *time.Time                `json:"evaluator_signature_date"`
	IsCompleted            bool                      `gorm:"not null;default:false;index" json:"is_completed"`
	CompletedAt            *time.Time                `json:"completed_at"`
	CreatedBy              *uint                     `json:"created_by"`
	CreatedAt              time.Time                 `json:"created_at"`
	UpdatedAt              time.Time                 `json:"updated_at"`
	Teacher                *Teacher                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"teacher,omitempty"`
	Course                 *Course                   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"course,omitempty"`
	Evaluator              *Evaluator                `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"evaluator,omitempty"`
	CurricularUnit         *CurricularUnit           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"curricular_unit,omitempty"`
	Semester               *Semester                 `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"semester,omitempty"`
	ChecklistItems         []EvaluationChecklistItem `gorm:"constraint:OnDelete:CASCADE" json:"checklist_items,omitempty"`
	Attachments            []EvaluationAttachment    `gorm:"constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	Signatures             []DigitalSignature        `gorm:"constraint:OnDelete:CASCADE" json:"signatures,omitempty"`
}

// SignatureState is the position of an evaluation in the teacher/evaluator signing lattice.
type SignatureState string

const (
	SignatureStateUnsigned        SignatureState = "unsigned"
	SignatureStateTeacherSigned   SignatureState = "teacher_signed"
	SignatureStateEvaluatorSigned SignatureState = "evaluator_signed"
	SignatureStateBothSigned      SignatureState = "both_signed"
)

// SignatureState derives the lattice state from the two independent signature flags.
func (e Evaluation) SignatureState() SignatureState {
	switch {
	case e.TeacherSigned && e.EvaluatorSigned:
		return SignatureStateBothSigned
	case e.TeacherSigned:
		return SignatureStateTeacherSigned
	case e.EvaluatorSigned:
		return SignatureStateEvaluatorSigned
	default:
		return SignatureStateUnsigned
	}
}

// PlanningPercentage scores the planning category.
func (e Evaluation) PlanningPercentage() float64 {
	return Score(e, CategoryPlanning)
}

// ClassPercentage scores the classroom category.
func (e Evaluation) ClassPercentage() float64 {
	return Score(e, CategoryClass)
}

// EvaluationAttachment references a blob stored outside the database.
type EvaluationAttachment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	EvaluationID     uint      `gorm:"not null;index" json:"evaluation_id"`
	Filename         string    `gorm:"size:255;not null" json:"filename"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	FilePath         string    `gorm:"size:500;not null" json:"file_path"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `gorm:"size:100" json:"mime_type"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

const (
	// SignatureTypeTeacher marks the evaluated teacher's signature.
	SignatureTypeTeacher = "teacher"
	// SignatureTypeEvaluator marks the evaluator's signature.
	SignatureTypeEvaluator = "evaluator"
)

// DigitalSignature records one actor signing an evaluation. At most one row exists per type.
type DigitalSignature struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EvaluationID  uint      `gorm:"not null;uniqueIndex:idx_signature_type" json:"evaluation_id"`
	SignatureType string    `gorm:"size:20;not null;uniqueIndex:idx_signature_type" json:"signature_type"`
	UserID        uint      `gorm:"not null" json:"user_id"`
	SignatureURL  string    `gorm:"size:512" json:"signature_url"`
	SignatureKey  string    `gorm:"size:255" json:"-"`
	IPAddress     string    `gorm:"size:64" json:"ip_address"`
	SignedAt      time.Time `gorm:"not null" json:"signed_at"`
}
