package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/acompanha-api/internal/models"
)

func TestSeedServiceEnsureAdmin(t *testing.T) {
	f := newWorkflowFixture(t)
	svc := NewSeedService(f.userRepo, f.semesters, testLogger())
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, " Coordenacao ", "s3cret-pass")
	require.NoError(t, err)
	require.True(t, created)

	admin, err := f.userRepo.GetByUsername(ctx, "coordenacao")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.True(t, admin.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass")))

	created, err = svc.EnsureAdmin(ctx, "coordenacao", "another-pass")
	require.NoError(t, err)
	require.False(t, created)

	unchanged, err := f.userRepo.GetByUsername(ctx, "coordenacao")
	require.NoError(t, err)
	require.Equal(t, admin.PasswordHash, unchanged.PasswordHash)
}

func TestSeedServiceEnsureAdminDisabledWithoutPassword(t *testing.T) {
	f := newWorkflowFixture(t)
	svc := NewSeedService(f.userRepo, f.semesters, testLogger())

	_, err := svc.EnsureAdmin(context.Background(), "admin", "")
	require.ErrorIs(t, err, ErrSeedDisabled)
}

func TestSeedServiceEnsureCurrentSemester(t *testing.T) {
	f := newWorkflowFixture(t)
	svc := NewSeedService(f.userRepo, f.semesters, testLogger())

	semester, err := svc.EnsureCurrentSemester(context.Background())
	require.NoError(t, err)
	require.Equal(t, f.semester.ID, semester.ID)
}
