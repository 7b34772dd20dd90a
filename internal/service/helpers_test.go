package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
	"github.com/noah-isme/acompanha-api/pkg/blob"
	"github.com/noah-isme/acompanha-api/pkg/secret"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Teacher{},
		&models.Evaluator{},
		&models.Course{},
		&models.CurricularUnit{},
		&models.Semester{},
		&models.ScheduledEvaluation{},
		&models.Evaluation{},
		&models.EvaluationChecklistItem{},
		&models.EvaluationAttachment{},
		&models.DigitalSignature{},
		&models.TemporaryCredential{},
		&models.ActivityLog{},
	))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// fixedClock returns a clock frozen at the given instant.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: make(map[string][]byte)}
}

func (m *memoryBlobStore) Put(_ context.Context, key string, r io.Reader) (blob.Object, error) {
	if m.failPut != nil {
		return blob.Object{}, m.failPut
	}
	buf := bytes.NewBuffer(nil)
	if _, err := buf.ReadFrom(r); err != nil {
		return blob.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return blob.Object{Key: key, URL: "https://files.example.com/" + key, Size: int64(buf.Len())}, nil
}

func (m *memoryBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return blob.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []NotificationTask
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task NotificationTask) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) Start(context.Context) {}

func (q *recordingQueue) kinds() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	kinds := make([]string, 0, len(q.tasks))
	for _, task := range q.tasks {
		kinds = append(kinds, task.Kind)
	}
	return kinds
}

func (q *recordingQueue) last() NotificationTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return NotificationTask{}
	}
	return q.tasks[len(q.tasks)-1]
}

// workflowFixture wires the evaluation services over one SQLite database.
type workflowFixture struct {
	db          *gorm.DB
	now         time.Time
	queue       *recordingQueue
	blobs       *memoryBlobStore
	activity    *memoryActivityRepo
	semesters   SemesterService
	schedules   ScheduleService
	reconciler  ScheduleReconciler
	evaluations EvaluationService
	signatures  SignatureService
	credentials CredentialService
	teachers    TeacherService

	admin            ActivityActor
	evaluatorActor   ActivityActor
	teacherActor     ActivityActor
	teacher          models.Teacher
	evaluator        models.Evaluator
	course           models.Course
	unit             models.CurricularUnit
	otherUnit        models.CurricularUnit
	semester         models.Semester
	evaluationRepo   repository.EvaluationRepository
	scheduleRepo     repository.ScheduleRepository
	semesterRepo     repository.SemesterRepository
	transactor       repository.Transactor
	teacherRepo      repository.TeacherRepository
	evaluatorRepo    repository.EvaluatorRepository
	courseRepo       repository.CourseRepository
	unitRepo         repository.CurricularUnitRepository
	userRepo         repository.UserRepository
	credentialRepo   repository.CredentialRepository
	uploads          UploadService
	notifier         Notifier
	activityRecorder ActivityRecorder
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	db := setupServiceDB(t)
	f := &workflowFixture{
		db:             db,
		now:            time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC),
		queue:          &recordingQueue{},
		blobs:          newMemoryBlobStore(),
		activity:       &memoryActivityRepo{},
		evaluationRepo: repository.NewEvaluationRepository(db),
		scheduleRepo:   repository.NewScheduleRepository(db),
		semesterRepo:   repository.NewSemesterRepository(db),
		transactor:     repository.NewTransactor(db),
		teacherRepo:    repository.NewTeacherRepository(db),
		evaluatorRepo:  repository.NewEvaluatorRepository(db),
		courseRepo:     repository.NewCourseRepository(db),
		unitRepo:       repository.NewCurricularUnitRepository(db),
		userRepo:       repository.NewUserRepository(db),
		credentialRepo: repository.NewCredentialRepository(db),
	}
	log := testLogger()
	validate := testValidator()
	f.activityRecorder = NewActivityService(f.activity, log)
	f.notifier = NewNotifier(f.queue, "Acompanha", log)
	f.uploads = NewUploadService(f.blobs, 1, log)

	semesterSvc := NewSemesterService(f.semesterRepo, f.transactor, f.activityRecorder, validate, log).(*semesterService)
	semesterSvc.now = fixedClock(f.now)
	f.semesters = semesterSvc

	reconciler := NewScheduleReconciler(f.scheduleRepo, f.evaluationRepo, log).(*scheduleReconciler)
	reconciler.now = fixedClock(f.now)
	f.reconciler = reconciler

	f.schedules = NewScheduleService(f.scheduleRepo, f.teacherRepo, f.unitRepo, f.semesters, f.transactor, f.notifier, f.activityRecorder, validate, log)

	evaluationSvc := NewEvaluationService(EvaluationDeps{
		Evaluations: f.evaluationRepo,
		Teachers:    f.teacherRepo,
		Evaluators:  f.evaluatorRepo,
		Courses:     f.courseRepo,
		Units:       f.unitRepo,
		Semesters:   f.semesters,
		Reconciler:  f.reconciler,
		Transactor:  f.transactor,
		Uploads:     f.uploads,
		Activity:    f.activityRecorder,
	}, validate, log).(*evaluationService)
	evaluationSvc.now = fixedClock(f.now)
	f.evaluations = evaluationSvc

	signatureSvc := NewSignatureService(SignatureDeps{
		Evaluations: f.evaluationRepo,
		Reconciler:  f.reconciler,
		Transactor:  f.transactor,
		Uploads:     f.uploads,
		Notifier:    f.notifier,
		Activity:    f.activityRecorder,
	}, validate, log).(*signatureService)
	signatureSvc.now = fixedClock(f.now)
	f.signatures = signatureSvc

	key, err := secret.GenerateKey()
	require.NoError(t, err)
	box, err := secret.ParseKey(key)
	require.NoError(t, err)
	credentialSvc := NewCredentialService(f.credentialRepo, f.teacherRepo, f.userRepo, f.transactor, box, f.notifier, f.activityRecorder, time.Hour, log).(*credentialService)
	credentialSvc.now = fixedClock(f.now)
	f.credentials = credentialSvc

	f.teachers = NewTeacherService(f.teacherRepo, f.userRepo, f.evaluationRepo, f.scheduleRepo, f.credentials, f.transactor, f.notifier, f.activityRecorder, validate, log)

	f.seed(t)
	return f
}

func (f *workflowFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	adminUser := models.User{Username: "admin", PasswordHash: "x", Name: "Coordenação", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, f.userRepo.Create(ctx, &adminUser))
	evaluatorUser := models.User{Username: "avaliador", PasswordHash: "x", Name: "Maria Souza", Role: models.RoleEvaluator, IsActive: true}
	require.NoError(t, f.userRepo.Create(ctx, &evaluatorUser))
	teacherUser := models.User{Username: "sn1234567", PasswordHash: "x", Name: "João Silva", Role: models.RoleTeacher, IsActive: true}
	require.NoError(t, f.userRepo.Create(ctx, &teacherUser))

	f.admin = ActivityActor{ID: adminUser.ID, Role: models.RoleAdmin}
	f.evaluatorActor = ActivityActor{ID: evaluatorUser.ID, Role: models.RoleEvaluator}
	f.teacherActor = ActivityActor{ID: teacherUser.ID, Role: models.RoleTeacher}

	f.teacher = models.Teacher{NIF: "SN1234567", Name: "João Silva", Area: "Mecânica", Email: "joao@example.com", UserID: &teacherUser.ID}
	require.NoError(t, f.teacherRepo.Create(ctx, &f.teacher))

	f.evaluator = models.Evaluator{Name: "Maria Souza", Role: "Coordenadora", Email: "maria@example.com", UserID: &evaluatorUser.ID}
	require.NoError(t, f.evaluatorRepo.Create(ctx, &f.evaluator))

	f.course = models.Course{Name: "Técnico em Mecânica", Period: "Noturno"}
	require.NoError(t, f.courseRepo.Create(ctx, &f.course))

	f.unit = models.CurricularUnit{Name: "Usinagem", CourseID: f.course.ID, IsActive: true}
	require.NoError(t, f.unitRepo.Create(ctx, &f.unit))
	f.otherUnit = models.CurricularUnit{Name: "Metrologia", CourseID: f.course.ID, IsActive: true}
	require.NoError(t, f.unitRepo.Create(ctx, &f.otherUnit))

	semester, err := f.semesters.Current(ctx)
	require.NoError(t, err)
	f.semester = semester
}

func (f *workflowFixture) slot(t *testing.T, unitID uint, month int) models.ScheduledEvaluation {
	t.Helper()
	slot := models.ScheduledEvaluation{TeacherID: f.teacher.ID, CurricularUnitID: unitID, SemesterID: f.semester.ID, ScheduledMonth: month}
	require.NoError(t, f.scheduleRepo.Create(context.Background(), &slot))
	return slot
}

func (f *workflowFixture) loadSlot(t *testing.T, id uint) models.ScheduledEvaluation {
	t.Helper()
	slot, err := f.scheduleRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return slot
}

func (f *workflowFixture) loadEvaluation(t *testing.T, id uint) models.Evaluation {
	t.Helper()
	evaluation, err := f.evaluationRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return evaluation
}

// evaluationRequest returns a minimal request for the seeded teacher in the seeded unit.
func (f *workflowFixture) evaluationRequest(date string) dto.EvaluationCreateRequest {
	unitID := f.unit.ID
	return dto.EvaluationCreateRequest{
		TeacherID:        f.teacher.ID,
		CourseID:         f.course.ID,
		CurricularUnitID: &unitID,
		EvaluationDate:   date,
		Period:           "Noturno",
	}
}

func (f *workflowFixture) createEvaluation(t *testing.T, req dto.EvaluationCreateRequest) dto.EvaluationResponse {
	t.Helper()
	resp, err := f.evaluations.Create(context.Background(), f.evaluatorActor, req)
	require.NoError(t, err)
	return resp
}
