package models

const (
	// CategoryPlanning groups lesson planning criteria.
	CategoryPlanning = "planning"
	// CategoryClass groups classroom conduct criteria.
	CategoryClass = "class"
)

// Tri-state checklist answers. An empty string means unanswered.
const (
	AnswerYes           = "Sim"
	AnswerNo            = "Não"
	AnswerNotApplicable = "Não se aplica"
)

// DefaultPlanningCriteria is the planning section of the institutional evaluation instrument.
var DefaultPlanningCriteria = []string{
	"Elabora cronograma de aula, replaneja quando necessário",
	"Planeja a aula considerando estratégias de avaliação",
	"Planeja instrumentos de avaliação diversificados",
	"Conhece os documentos estruturantes",
	"Utiliza instrumentos diversificados ao longo do período",
	"Prepara previamente o local de trabalho",
	"Disponibiliza e acompanha a realização de atividades",
}

// DefaultClassCriteria is the classroom section of the institutional evaluation instrument.
var DefaultClassCriteria = []string{
	"Demonstra apresentação pessoal e postura adequadas",
	"Demonstra conhecimento dos assuntos que ministra",
	"Acompanha o desempenho dos alunos",
	"Efetua registros de ocorrências",
	"Realiza levantamento de dificuldades dos alunos",
	"Relaciona o aprendizado teórico e prático",
	"Inicia a aula retomando a anterior",
	"Explicita objetivos e associados ao curso",
	"Propõe questões previamente planejadas",
	"Verifica se o conteúdo está sendo assimilado",
	"Estimula a participação dos alunos durante a aula",
	"Promove o processo de recuperação",
	"Aplica exercícios de forma a estimular o aprendizado",
	"Mantém a disciplina na sala de aula",
	"Aplica estratégias de ensino pertinentes aos objetivos da aula",
	"Orienta a utilização de máquinas, equipamentos e ferramentas",
	"Cumpre e faz cumprir normas e procedimentos de segurança",
}

// EvaluationChecklistItem is a single criterion row attached to an evaluation.
type EvaluationChecklistItem struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	EvaluationID uint   `gorm:"not null;index" json:"evaluation_id"`
	Label        string `gorm:"type:text;not null" json:"label"`
	Category     string `gorm:"size:20;not null;index" json:"category"`
	IsDefault    bool   `gorm:"not null;default:false" json:"is_default"`
	Value        string `gorm:"size:20" json:"value"`
	DisplayOrder int    `gorm:"not null;default:0" json:"display_order"`
}

// ValidCategory reports whether category is one of the two scoring categories.
func ValidCategory(category string) bool {
	return category == CategoryPlanning || category == CategoryClass
}

// ValidAnswer reports whether value is unset or one of the tri-state answers.
func ValidAnswer(value string) bool {
	switch value {
	case "", AnswerYes, AnswerNo, AnswerNotApplicable:
		return true
	default:
		return false
	}
}

// CreateDefaultItems seeds the fixed instrument for an evaluation: planning criteria first,
// then classroom criteria, each ordered by position within its category and left unanswered.
func CreateDefaultItems(evaluationID uint) []EvaluationChecklistItem {
	items := make([]EvaluationChecklistItem, 0, len(DefaultPlanningCriteria)+len(DefaultClassCriteria))
	for i, label := range DefaultPlanningCriteria {
		items = append(items, EvaluationChecklistItem{
			EvaluationID: evaluationID,
			Label:        label,
			Category:     CategoryPlanning,
			IsDefault:    true,
			DisplayOrder: i,
		})
	}
	for i, label := range DefaultClassCriteria {
		items = append(items, EvaluationChecklistItem{
			EvaluationID: evaluationID,
			Label:        label,
			Category:     CategoryClass,
			IsDefault:    true,
			DisplayOrder: i,
		})
	}
	return items
}

// LegacyChecklist holds the fixed answer columns used before per-evaluation checklists existed.
type LegacyChecklist struct {
	PlanningSchedule          string `gorm:"size:20" json:"planning_schedule,omitempty"`
	PlanningLessonPlan        string `gorm:"size:20" json:"planning_lesson_plan,omitempty"`
	PlanningEvaluation        string `gorm:"size:20" json:"planning_evaluation,omitempty"`
	PlanningDocuments         string `gorm:"size:20" json:"planning_documents,omitempty"`
	PlanningDiversified       string `gorm:"size:20" json:"planning_diversified,omitempty"`
	PlanningLocalWork         string `gorm:"size:20" json:"planning_local_work,omitempty"`
	PlanningTools             string `gorm:"size:20" json:"planning_tools,omitempty"`
	PlanningEducationalPortal string `gorm:"size:20" json:"planning_educational_portal,omitempty"`
	ClassPresentation         string `gorm:"size:20" json:"class_presentation,omitempty"`
	ClassKnowledge            string `gorm:"size:20" json:"class_knowledge,omitempty"`
	ClassStudentPerformance   string `gorm:"size:20" json:"class_student_performance,omitempty"`
	ClassAttendance           string `gorm:"size:20" json:"class_attendance,omitempty"`
	ClassDifficulties         string `gorm:"size:20" json:"class_difficulties,omitempty"`
	ClassTheoreticalPractical string `gorm:"size:20" json:"class_theoretical_practical,omitempty"`
	ClassPreviousLesson       string `gorm:"size:20" json:"class_previous_lesson,omitempty"`
	ClassObjectives           string `gorm:"size:20" json:"class_objectives,omitempty"`
	ClassQuestions            string `gorm:"size:20" json:"class_questions,omitempty"`
	ClassContentAssimilation  string `gorm:"size:20" json:"class_content_assimilation,omitempty"`
	ClassStudentParticipation string `gorm:"size:20" json:"class_student_participation,omitempty"`
	ClassRecoveryProcess      string `gorm:"size:20" json:"class_recovery_process,omitempty"`
	ClassSchoolPedagogy       string `gorm:"size:20" json:"class_school_pedagogy,omitempty"`
	ClassLearningExercises    string `gorm:"size:20" json:"class_learning_exercises,omitempty"`
	ClassDiscipline           string `gorm:"size:20" json:"class_discipline,omitempty"`
	ClassEducationalGuidance  string `gorm:"size:20" json:"class_educational_orientation,omitempty"`
	ClassTeachingStrategies   string `gorm:"size:20" json:"class_teaching_strategies,omitempty"`
	ClassMachinesEquipment    string `gorm:"size:20" json:"class_machines_equipment,omitempty"`
	ClassSafetyProcedures     string `gorm:"size:20" json:"class_safety_procedures,omitempty"`
}

// PlanningValues lists the legacy planning answers in column order.
func (l LegacyChecklist) PlanningValues() []string {
	return []string{
		l.PlanningSchedule, l.PlanningLessonPlan, l.PlanningEvaluation, l.PlanningDocuments,
		l.PlanningDiversified, l.PlanningLocalWork, l.PlanningTools, l.PlanningEducationalPortal,
	}
}

// ClassValues lists the legacy classroom answers in column order.
func (l LegacyChecklist) ClassValues() []string {
	return []string{
		l.ClassPresentation, l.ClassKnowledge, l.ClassStudentPerformance, l.ClassAttendance,
		l.ClassDifficulties, l.ClassTheoreticalPractical, l.ClassPreviousLesson, l.ClassObjectives,
		l.ClassQuestions, l.ClassContentAssimilation, l.ClassStudentParticipation,
		l.ClassRecoveryProcess, l.ClassSchoolPedagogy, l.ClassLearningExercises, l.ClassDiscipline,
		l.ClassEducationalGuidance, l.ClassTeachingStrategies, l.ClassMachinesEquipment,
		l.ClassSafetyProcedures,
	}
}

// Values returns the legacy answers for a category.
func (l LegacyChecklist) Values(category string) []string {
	switch category {
	case CategoryPlanning:
		return l.PlanningValues()
	case CategoryClass:
		return l.ClassValues()
	default:
		return nil
	}
}

// Validate reports whether every legacy column holds a tri-state answer or is unset.
func (l LegacyChecklist) Validate() bool {
	for _, value := range append(l.PlanningValues(), l.ClassValues()...) {
		if !ValidAnswer(value) {
			return false
		}
	}
	return true
}
