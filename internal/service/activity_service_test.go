package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func (m *memoryActivityRepo) actions() []string {
	actions := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func TestActivityServiceRecordMasksSecrets(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Admin",
		Action:     "Credentials.Issued",
		EntityType: "teacher",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"email":    "teacher@example.com",
			"token":    "abc",
			"password": "secret",
			"nif":      "SN1234567",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "***", entry.Metadata["token"])
	require.Equal(t, "***", entry.Metadata["password"])
	require.Equal(t, "SN1234567", entry.Metadata["nif"])
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, "credentials.issued", entry.Action)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "evaluation"})
	require.Error(t, err)

	entry, err := svc.Record(context.Background(), ActivityEntry{Action: "evaluation.created", EntityType: "evaluation"})
	require.NoError(t, err)
	require.Equal(t, "system", entry.ActorRole)
}

func TestActivityServiceListPaginates(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{ActorID: 1, ActorRole: "admin", Action: "schedule.created", EntityType: "schedule"})
		require.NoError(t, err)
	}

	resp, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	require.Equal(t, int64(3), resp.Pagination.TotalItems)
	require.Equal(t, 2, resp.Pagination.TotalPages)
}

func ptrUint(v uint) *uint {
	return &v
}
