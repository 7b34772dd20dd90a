package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/acompanha-api/internal/models"
)

func TestCredentialIssueInvalidatesPriorTokens(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	first, err := f.credentials.Issue(ctx, f.admin, f.teacher.ID)
	require.NoError(t, err)
	second, err := f.credentials.Issue(ctx, f.admin, f.teacher.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, "sn1234567", second.Username)
	assert.Equal(t, f.now.Add(time.Hour), second.ExpiresAt)

	status, err := f.credentials.Status(ctx, first.Token)
	require.NoError(t, err)
	assert.True(t, status.Used)
	assert.False(t, status.Valid)

	_, err = f.credentials.Redeem(ctx, first.Token)
	assert.ErrorIs(t, err, ErrCredentialUsed)

	unused, err := f.credentialRepo.CountUnused(ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unused)

	assert.Equal(t, []string{NotificationCredentials, NotificationCredentials}, f.queue.kinds())
	assert.Contains(t, f.activity.actions(), ActionCredentialsIssued)
}

func TestCredentialIssueReloadsTeacherUnderLock(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	fresh := models.Teacher{NIF: "SN7654321", Name: "Ana Lima", Area: "Elétrica", Email: "ana@example.com"}
	require.NoError(t, f.teacherRepo.Create(ctx, &fresh))
	stale := fresh

	first, err := f.credentials.IssueFor(ctx, f.admin, fresh)
	require.NoError(t, err)
	assert.Equal(t, "sn7654321", first.Username)

	// The second issuer still holds the copy read before the account existed.
	require.Nil(t, stale.UserID)
	second, err := f.credentials.IssueFor(ctx, f.admin, stale)
	require.NoError(t, err)
	assert.Equal(t, first.Username, second.Username)

	unused, err := f.credentialRepo.CountUnused(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unused)

	_, err = f.credentials.IssueFor(ctx, f.admin, models.Teacher{ID: 999})
	assert.ErrorIs(t, err, ErrTeacherNotFound)
}

func TestCredentialRedeemIsSingleUse(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	issued, err := f.credentials.Issue(ctx, f.admin, f.teacher.ID)
	require.NoError(t, err)

	status, err := f.credentials.Status(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, status.Valid)
	assert.Equal(t, "João Silva", status.TeacherName)

	redeemed, err := f.credentials.Redeem(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "SN1234567", redeemed.NIF)
	assert.Equal(t, "sn1234567", redeemed.Username)
	assert.Len(t, redeemed.Password, passwordLength)
	assert.Contains(t, f.queue.last().Body, redeemed.Password)

	user, err := f.userRepo.GetByUsername(ctx, "sn1234567")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(redeemed.Password)))

	_, err = f.credentials.Redeem(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrCredentialUsed)
	_, err = f.credentials.RedeemPDF(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrCredentialUsed)
	assert.Contains(t, f.activity.actions(), ActionCredentialRedeemed)
}

func TestCredentialExpiry(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	issued, err := f.credentials.Issue(ctx, f.admin, f.teacher.ID)
	require.NoError(t, err)

	f.credentials.(*credentialService).now = fixedClock(f.now.Add(time.Hour + time.Second))

	status, err := f.credentials.Status(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, status.Expired)
	assert.False(t, status.Valid)

	_, err = f.credentials.Redeem(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrCredentialExpired)
}

func TestCredentialUnknownToken(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	_, err := f.credentials.Status(ctx, "missing")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	_, err = f.credentials.Redeem(ctx, "missing")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	_, err = f.credentials.Issue(ctx, f.admin, 9999)
	assert.ErrorIs(t, err, ErrTeacherNotFound)
}

func TestCredentialRedeemPDF(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	issued, err := f.credentials.Issue(ctx, f.admin, f.teacher.ID)
	require.NoError(t, err)

	document, err := f.credentials.RedeemPDF(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(document, []byte("%PDF")))

	status, err := f.credentials.Status(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, status.Used)
}

func TestGeneratedSecretsShape(t *testing.T) {
	password, err := generatePassword()
	require.NoError(t, err)
	assert.Len(t, password, passwordLength)
	for _, r := range password {
		assert.Contains(t, passwordCharset, string(r))
	}

	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40)
}
