package handler_test

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/handler"
	"github.com/noah-isme/acompanha-api/internal/service"
)

func newCredentialApp(credentials *mockCredentialService) *fiber.App {
	app := fiber.New()
	handler.NewCredentialHandler(credentials, testLogger()).Register(app.Group("/credentials"))
	return app
}

func TestCredentialHandlerStatus(t *testing.T) {
	expires := time.Date(2025, time.March, 15, 11, 0, 0, 0, time.UTC)
	app := newCredentialApp(&mockCredentialService{status: dto.CredentialStatusResponse{Valid: true, ExpiresAt: expires, TeacherName: "João Silva"}})

	resp, env := perform(t, app, jsonRequest(t, http.MethodGet, "/credentials/known", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status dto.CredentialStatusResponse
	decodeData(t, env, &status)
	require.True(t, status.Valid)
	require.Equal(t, "João Silva", status.TeacherName)

	resp, _ = perform(t, app, jsonRequest(t, http.MethodGet, "/credentials/unknown", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCredentialHandlerRedeemIsNotCached(t *testing.T) {
	app := newCredentialApp(&mockCredentialService{})

	resp, env := perform(t, app, jsonRequest(t, http.MethodPost, "/credentials/known/redeem", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))

	var redeemed dto.RedeemedCredential
	decodeData(t, env, &redeemed)
	require.Equal(t, "sn1234567", redeemed.Username)
	require.Equal(t, "Abc123xyz!", redeemed.Password)
}

func TestCredentialHandlerRedeemUsedOrExpiredIsGone(t *testing.T) {
	for _, err := range []error{service.ErrCredentialUsed, service.ErrCredentialExpired} {
		app := newCredentialApp(&mockCredentialService{redeemErr: err})

		resp, env := perform(t, app, jsonRequest(t, http.MethodPost, "/credentials/known/redeem", nil))
		require.Equal(t, http.StatusGone, resp.StatusCode)
		require.Equal(t, err.Error(), env.Message)
	}
}

func TestCredentialHandlerPDFDownload(t *testing.T) {
	app := newCredentialApp(&mockCredentialService{pdf: []byte("%PDF-1.3 credential")})

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/credentials/abcdef1234567890/pdf", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "credenciais-abcdef12.pdf")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.3 credential", string(body))
}
