package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
)

func TestEvaluationCreateSeedsDefaultChecklist(t *testing.T) {
	f := newWorkflowFixture(t)

	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))

	require.Equal(t, f.evaluator.ID, created.EvaluatorID)
	require.NotNil(t, created.SemesterID)
	require.Equal(t, f.semester.ID, *created.SemesterID)
	require.Len(t, created.ChecklistItems, len(models.DefaultPlanningCriteria)+len(models.DefaultClassCriteria))

	planning := 0
	for i, item := range created.ChecklistItems {
		require.True(t, item.IsDefault)
		require.Empty(t, item.Value)
		if item.Category == models.CategoryPlanning {
			require.Equal(t, models.DefaultPlanningCriteria[item.DisplayOrder], item.Label)
			require.Less(t, i, len(models.DefaultPlanningCriteria))
			planning++
		}
	}
	require.Equal(t, len(models.DefaultPlanningCriteria), planning)
	require.Equal(t, dto.ScoreResponse{Percentage: 0, Source: "dynamic"}, created.Planning)
	require.Equal(t, []string{ActionEvaluationCreated}, f.activity.actions())
}

func TestEvaluationCreateKeepsClientItems(t *testing.T) {
	f := newWorkflowFixture(t)

	req := f.evaluationRequest("2025-03-10")
	req.GeneralObservations = "<b>Boa aula</b>"
	req.ChecklistItems = []dto.ChecklistItemInput{
		{Label: "Chega no horário", Category: models.CategoryPlanning, Value: models.AnswerYes, DisplayOrder: 0},
		{Label: "Entrega plano", Category: models.CategoryPlanning, Value: models.AnswerNo, IsDefault: true, DisplayOrder: 1},
		{Label: "Usa quadro", Category: models.CategoryClass, Value: models.AnswerNotApplicable, DisplayOrder: 0},
		{Label: "Faz chamada", Category: models.CategoryClass, Value: models.AnswerYes, DisplayOrder: 1},
	}
	created := f.createEvaluation(t, req)

	require.Len(t, created.ChecklistItems, 4)
	require.True(t, created.ChecklistItems[1].IsDefault)
	require.Equal(t, 50.0, created.Planning.Percentage)
	require.Equal(t, 100.0, created.Class.Percentage)
	require.Equal(t, "Boa aula", created.GeneralObservations)
}

func TestEvaluationCreateValidatesReferences(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	otherCourse := models.Course{Name: "Técnico em Eletrotécnica", Period: "Manhã"}
	require.NoError(t, f.courseRepo.Create(ctx, &otherCourse))

	req := f.evaluationRequest("2025-03-10")
	req.CourseID = otherCourse.ID
	_, err := f.evaluations.Create(ctx, f.evaluatorActor, req)
	require.ErrorIs(t, err, ErrUnitCourseMismatch)

	req = f.evaluationRequest("2025-03-10")
	req.Legacy.PlanningSchedule = "Talvez"
	_, err = f.evaluations.Create(ctx, f.evaluatorActor, req)
	require.ErrorIs(t, err, ErrInvalidChecklistValue)

	_, err = f.evaluations.Create(ctx, f.admin, f.evaluationRequest("2025-03-10"))
	require.ErrorIs(t, err, ErrEvaluatorNotFound)

	_, err = f.evaluations.Create(ctx, f.teacherActor, f.evaluationRequest("2025-03-10"))
	require.ErrorIs(t, err, ErrForbidden)

	list, err := f.evaluations.List(ctx, f.admin, dto.EvaluationListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Empty(t, list.Items)
}

func TestEvaluationCreateChecksSelectedSemester(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	req := f.evaluationRequest("2025-10-01")
	req.SemesterID = &f.semester.ID
	_, err := f.evaluations.Create(ctx, f.evaluatorActor, req)
	require.ErrorIs(t, err, ErrDateOutsideSemester)

	missing := uint(999)
	req = f.evaluationRequest("2025-03-10")
	req.SemesterID = &missing
	_, err = f.evaluations.Create(ctx, f.evaluatorActor, req)
	require.ErrorIs(t, err, ErrSemesterNotFound)

	req = f.evaluationRequest("2025-06-30")
	req.SemesterID = &f.semester.ID
	created := f.createEvaluation(t, req)
	require.NotNil(t, created.SemesterID)
	require.Equal(t, f.semester.ID, *created.SemesterID)
}

func TestEvaluationChecklistEditRules(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	first := created.ChecklistItems[0]

	renamed := dto.ChecklistItemInput{ID: &first.ID, Label: "Outro texto", Category: first.Category, Value: models.AnswerYes}
	_, err := f.evaluations.Update(ctx, f.evaluatorActor, created.ID, dto.EvaluationUpdateRequest{ChecklistItems: []dto.ChecklistItemInput{renamed}})
	require.ErrorIs(t, err, ErrDefaultItemLocked)

	answered := dto.ChecklistItemInput{ID: &first.ID, Label: first.Label, Category: first.Category, Value: models.AnswerYes}
	custom := dto.ChecklistItemInput{Label: "Usa recursos digitais", Category: models.CategoryPlanning, Value: models.AnswerNo, IsDefault: true, DisplayOrder: 7}
	updated, err := f.evaluations.Update(ctx, f.evaluatorActor, created.ID, dto.EvaluationUpdateRequest{
		ChecklistItems: []dto.ChecklistItemInput{answered, custom},
	})
	require.NoError(t, err)
	require.Len(t, updated.ChecklistItems, len(created.ChecklistItems)+1)
	require.Equal(t, 50.0, updated.Planning.Percentage)

	var customID uint
	for _, item := range updated.ChecklistItems {
		if item.ID == first.ID {
			require.Equal(t, models.AnswerYes, item.Value)
		}
		if item.Label == "Usa recursos digitais" {
			require.False(t, item.IsDefault)
			customID = item.ID
		}
	}
	require.NotZero(t, customID)

	_, err = f.evaluations.Update(ctx, f.evaluatorActor, created.ID, dto.EvaluationUpdateRequest{DeleteItemIDs: []uint{first.ID}})
	require.ErrorIs(t, err, ErrDefaultItemLocked)

	missing := uint(9999)
	_, err = f.evaluations.Update(ctx, f.evaluatorActor, created.ID, dto.EvaluationUpdateRequest{
		ChecklistItems: []dto.ChecklistItemInput{{ID: &missing, Label: "x", Category: models.CategoryClass}},
	})
	require.ErrorIs(t, err, ErrChecklistItemNotFound)

	updated, err = f.evaluations.Update(ctx, f.evaluatorActor, created.ID, dto.EvaluationUpdateRequest{DeleteItemIDs: []uint{customID}})
	require.NoError(t, err)
	require.Len(t, updated.ChecklistItems, len(created.ChecklistItems))
	require.Equal(t, 100.0, updated.Planning.Percentage)
}

func TestEvaluationDeleteReopensSlotAndRemovesBlobs(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	slot := f.slot(t, f.unit.ID, 3)
	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	require.True(t, f.loadSlot(t, slot.ID).IsCompleted)

	attachment, err := f.evaluations.AddAttachment(ctx, f.evaluatorActor, created.ID, "foto.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, "foto.png", attachment.OriginalFilename)
	require.Equal(t, 1, f.blobs.count())

	_, err = f.evaluations.AddAttachment(ctx, f.teacherActor, created.ID, "foto.png", bytes.NewReader(pngHeader))
	require.ErrorIs(t, err, ErrForbidden)

	require.ErrorIs(t, f.evaluations.Delete(ctx, f.teacherActor, created.ID), ErrForbidden)
	require.NoError(t, f.evaluations.Delete(ctx, f.evaluatorActor, created.ID))

	reopened := f.loadSlot(t, slot.ID)
	require.False(t, reopened.IsCompleted)
	require.Nil(t, reopened.EvaluationID)
	require.Nil(t, reopened.CompletedAt)
	require.Zero(t, f.blobs.count())

	_, err = f.evaluations.Get(ctx, f.admin, created.ID)
	require.ErrorIs(t, err, ErrEvaluationNotFound)
	require.Contains(t, f.activity.actions(), ActionEvaluationDeleted)
}

func TestEvaluationAttachmentDelete(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	created := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	attachment, err := f.evaluations.AddAttachment(ctx, f.evaluatorActor, created.ID, "foto.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	require.ErrorIs(t, f.evaluations.DeleteAttachment(ctx, f.evaluatorActor, created.ID+1, attachment.ID), ErrAttachmentNotFound)
	require.NoError(t, f.evaluations.DeleteAttachment(ctx, f.evaluatorActor, created.ID, attachment.ID))
	require.Zero(t, f.blobs.count())

	loaded, err := f.evaluations.Get(ctx, f.admin, created.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.Attachments)
}

func TestEvaluationTeacherVisibility(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	other := models.Teacher{NIF: "SN7654321", Name: "Ana Lima", Area: "Elétrica"}
	require.NoError(t, f.teacherRepo.Create(ctx, &other))

	own := f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	foreignReq := f.evaluationRequest("2025-03-11")
	foreignReq.TeacherID = other.ID
	foreign := f.createEvaluation(t, foreignReq)

	_, err := f.evaluations.Get(ctx, f.teacherActor, own.ID)
	require.NoError(t, err)
	_, err = f.evaluations.Get(ctx, f.teacherActor, foreign.ID)
	require.ErrorIs(t, err, ErrForbidden)

	list, err := f.evaluations.List(ctx, f.teacherActor, dto.EvaluationListRequest{TeacherID: other.ID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, own.ID, list.Items[0].ID)

	list, err = f.evaluations.List(ctx, f.admin, dto.EvaluationListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
}
