package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
)

func TestSignTwiceIsRejected(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))

	signed, err := f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{}, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, signed.TeacherSigned)
	require.NotNil(t, signed.TeacherSignatureDate)
	require.False(t, signed.IsCompleted)
	require.Equal(t, string(models.SignatureStateTeacherSigned), signed.SignatureState)

	_, err = f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{}, "10.0.0.1")
	require.ErrorIs(t, err, ErrAlreadySigned)

	signatures, err := f.signatures.List(ctx, f.admin, created.ID)
	require.NoError(t, err)
	require.Len(t, signatures, 1)
	require.Equal(t, models.SignatureTypeTeacher, signatures[0].SignatureType)
	require.Equal(t, "10.0.0.1", signatures[0].IPAddress)

	notice := f.queue.last()
	require.Equal(t, NotificationSignature, notice.Kind)
	require.Equal(t, "maria@example.com", notice.To[0].Email)
}

func TestBothSignaturesCompleteEvaluationAndSlot(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	slot := f.slot(t, f.unit.ID, 3)
	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	require.Equal(t, slot.ID, *created.ScheduledEvaluationID)

	afterEvaluator, err := f.signatures.Sign(ctx, f.evaluatorActor, created.ID, dto.SignRequest{}, "10.0.0.2")
	require.NoError(t, err)
	require.False(t, afterEvaluator.IsCompleted)
	require.Equal(t, string(models.SignatureStateEvaluatorSigned), afterEvaluator.SignatureState)

	done, err := f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{}, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, done.IsCompleted)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, string(models.SignatureStateBothSigned), done.SignatureState)

	linked := f.loadSlot(t, slot.ID)
	require.True(t, linked.IsCompleted)
	require.Equal(t, created.ID, *linked.EvaluationID)

	notice := f.queue.last()
	require.Equal(t, NotificationEvaluation, notice.Kind)
	require.Equal(t, "joao@example.com", notice.To[0].Email)
	require.Len(t, notice.Attachments, 1)
	require.Equal(t, "relatorio_João_Silva.pdf", notice.Attachments[0].Filename)
	require.Equal(t, "%PDF", string(notice.Attachments[0].Content[:4]))

	require.Contains(t, f.activity.actions(), ActionEvaluationComplete)

	period := "Manhã"
	_, err = f.evaluations.Update(ctx, f.evaluatorActor, created.ID, dto.EvaluationUpdateRequest{Period: &period})
	require.ErrorIs(t, err, ErrEvaluationLocked)
}

// staleEvaluationRepo serves a snapshot on the first read, as a transaction that started before a
// concurrent signature committed would see it.
type staleEvaluationRepo struct {
	repository.EvaluationRepository
	snapshot *models.Evaluation
}

func (r *staleEvaluationRepo) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	if r.snapshot != nil {
		snapshot := *r.snapshot
		r.snapshot = nil
		return snapshot, nil
	}
	return r.EvaluationRepository.GetByID(ctx, id)
}

func TestInterleavedSignaturesStillComplete(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	slot := f.slot(t, f.unit.ID, 3)
	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	before := f.loadEvaluation(t, created.ID)

	_, err := f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{}, "")
	require.NoError(t, err)

	evaluatorSide := NewSignatureService(SignatureDeps{
		Evaluations: &staleEvaluationRepo{EvaluationRepository: f.evaluationRepo, snapshot: &before},
		Reconciler:  f.reconciler,
		Transactor:  f.transactor,
		Uploads:     f.uploads,
		Notifier:    f.notifier,
		Activity:    f.activityRecorder,
	}, testValidator(), testLogger())

	done, err := evaluatorSide.Sign(ctx, f.evaluatorActor, created.ID, dto.SignRequest{}, "")
	require.NoError(t, err)
	require.True(t, done.IsCompleted)

	stored := f.loadEvaluation(t, created.ID)
	require.True(t, stored.TeacherSigned)
	require.True(t, stored.EvaluatorSigned)
	require.True(t, stored.IsCompleted)
	require.True(t, f.loadSlot(t, slot.ID).IsCompleted)
	require.Contains(t, f.activity.actions(), ActionEvaluationComplete)
}

func TestTeacherOnlySignatureNeverCompletes(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))

	_, err := f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{}, "")
	require.NoError(t, err)

	stored := f.loadEvaluation(t, created.ID)
	require.True(t, stored.TeacherSigned)
	require.False(t, stored.EvaluatorSigned)
	require.False(t, stored.IsCompleted)
	require.Nil(t, stored.CompletedAt)
}

func TestTeacherSignatureLinksSlotScheduledLater(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	require.Nil(t, created.ScheduledEvaluationID)

	slot := f.slot(t, f.unit.ID, 4)
	signed, err := f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{}, "")
	require.NoError(t, err)
	require.NotNil(t, signed.ScheduledEvaluationID)
	require.Equal(t, slot.ID, *signed.ScheduledEvaluationID)
	require.True(t, f.loadSlot(t, slot.ID).IsCompleted)
}

func TestSignatureRequiresOwnership(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))

	stranger := models.User{Username: "outro", PasswordHash: "x", Name: "Outro", Role: models.RoleEvaluator, IsActive: true}
	require.NoError(t, f.userRepo.Create(ctx, &stranger))
	_, err := f.signatures.Sign(ctx, ActivityActor{ID: stranger.ID, Role: models.RoleEvaluator}, created.ID, dto.SignRequest{}, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.signatures.Sign(ctx, ActivityActor{ID: stranger.ID, Role: "guest"}, created.ID, dto.SignRequest{}, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.signatures.Sign(ctx, f.admin, created.ID+100, dto.SignRequest{}, "")
	require.ErrorIs(t, err, ErrEvaluationNotFound)

	// Admins sign on the evaluator line.
	signed, err := f.signatures.Sign(ctx, f.admin, created.ID, dto.SignRequest{}, "")
	require.NoError(t, err)
	require.True(t, signed.EvaluatorSigned)
}

func TestSignatureImageHandling(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))

	_, err := f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{SignatureImage: "%%%not-base64"}, "")
	require.ErrorIs(t, err, ErrInvalidSignatureImage)
	require.False(t, f.loadEvaluation(t, created.ID).TeacherSigned)

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	signed, err := f.signatures.Sign(ctx, f.teacherActor, created.ID, dto.SignRequest{SignatureImage: image}, "")
	require.NoError(t, err)
	require.Len(t, signed.Signatures, 1)
	require.NotEmpty(t, signed.Signatures[0].SignatureURL)
	require.Equal(t, 1, f.blobs.count())

	// A failing store does not block the signature.
	f.blobs.failPut = errors.New("store offline")
	signed, err = f.signatures.Sign(ctx, f.evaluatorActor, created.ID, dto.SignRequest{SignatureImage: image}, "")
	require.NoError(t, err)
	require.True(t, signed.IsCompleted)
	require.Equal(t, 1, f.blobs.count())
}

func TestDecodeSignatureImage(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("abc"))

	decoded, err := decodeSignatureImage(raw)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), decoded)

	decoded, err = decodeSignatureImage("data:image/png;base64," + raw)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), decoded)

	decoded, err = decodeSignatureImage("  ")
	require.NoError(t, err)
	require.Nil(t, decoded)

	_, err = decodeSignatureImage("data:image/png;base64")
	require.ErrorIs(t, err, ErrInvalidSignatureImage)
}
