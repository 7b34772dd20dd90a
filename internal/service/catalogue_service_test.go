package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acompanha-api/internal/dto"
)

func newCatalogueServices(f *workflowFixture) (EvaluatorService, CourseService) {
	evaluators := NewEvaluatorService(f.evaluatorRepo, f.userRepo, f.evaluationRepo, testValidator(), testLogger())
	courses := NewCourseService(f.courseRepo, f.unitRepo, f.evaluationRepo, f.scheduleRepo, f.transactor, testValidator(), testLogger())
	return evaluators, courses
}

func TestEvaluatorLifecycle(t *testing.T) {
	f := newWorkflowFixture(t)
	evaluators, _ := newCatalogueServices(f)
	ctx := context.Background()

	missing := uint(9999)
	_, err := evaluators.Create(ctx, dto.EvaluatorRequest{Name: "Carlos", Role: "Supervisor", UserID: &missing})
	assert.ErrorIs(t, err, ErrUserNotFound)

	created, err := evaluators.Create(ctx, dto.EvaluatorRequest{Name: " Carlos ", Role: "Supervisor", Email: "carlos@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Carlos", created.Name)

	list, err := evaluators.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	updated, err := evaluators.Update(ctx, created.ID, dto.EvaluatorRequest{Name: "Carlos Dias", Role: "Coordenador"})
	require.NoError(t, err)
	assert.Equal(t, "Coordenador", updated.Role)
	assert.Empty(t, updated.Email)

	require.NoError(t, evaluators.Delete(ctx, created.ID))
	_, err = evaluators.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrEvaluatorNotFound)
}

func TestEvaluatorDeleteGuardsEvaluations(t *testing.T) {
	f := newWorkflowFixture(t)
	evaluators, _ := newCatalogueServices(f)

	f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	err := evaluators.Delete(context.Background(), f.evaluator.ID)
	assert.ErrorIs(t, err, ErrHasLinkedRecords)
}

func TestCourseAndUnitLifecycle(t *testing.T) {
	f := newWorkflowFixture(t)
	_, courses := newCatalogueServices(f)
	ctx := context.Background()

	course, err := courses.CreateCourse(ctx, dto.CourseRequest{Name: "Técnico em Eletrotécnica", Period: "Matutino", ClassCode: "ELT-1"})
	require.NoError(t, err)
	assert.Empty(t, course.CurricularUnits)

	workload := 80
	unit, err := courses.CreateUnit(ctx, dto.CurricularUnitRequest{Name: "Circuitos", CourseID: course.ID, Workload: &workload})
	require.NoError(t, err)
	assert.True(t, unit.IsActive)
	assert.Equal(t, "Técnico em Eletrotécnica", unit.CourseName)

	_, err = courses.CreateUnit(ctx, dto.CurricularUnitRequest{Name: "Órfã", CourseID: 9999})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	inactive := false
	unit, err = courses.UpdateUnit(ctx, unit.ID, dto.CurricularUnitRequest{Name: "Circuitos I", CourseID: course.ID, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, unit.IsActive)

	active, err := courses.ListUnits(ctx, &course.ID, true, "")
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := courses.ListUnits(ctx, &course.ID, false, "circ")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	loaded, err := courses.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.CurricularUnits, 1)

	require.NoError(t, courses.DeleteCourse(ctx, course.ID))
	_, err = courses.GetUnit(ctx, unit.ID)
	assert.ErrorIs(t, err, ErrCurricularUnitNotFound)
	_, err = courses.GetCourse(ctx, course.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseDeleteGuardsLinkedRecords(t *testing.T) {
	f := newWorkflowFixture(t)
	_, courses := newCatalogueServices(f)
	ctx := context.Background()

	f.slot(t, f.otherUnit.ID, 5)
	assert.ErrorIs(t, courses.DeleteUnit(ctx, f.otherUnit.ID), ErrHasLinkedRecords)

	f.createEvaluation(t, f.evaluationRequest("2025-03-10"))
	assert.ErrorIs(t, courses.DeleteCourse(ctx, f.course.ID), ErrHasLinkedRecords)
	assert.ErrorIs(t, courses.DeleteUnit(ctx, f.unit.ID), ErrHasLinkedRecords)

	_, err := courses.GetUnit(ctx, f.unit.ID)
	assert.NoError(t, err)
}
