package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

// CredentialHandler serves the public, token-addressed credential endpoints.
type CredentialHandler struct {
	service service.CredentialService
	logger  zerolog.Logger
}

// NewCredentialHandler constructs the handler.
func NewCredentialHandler(service service.CredentialService, logger zerolog.Logger) *CredentialHandler {
	return &CredentialHandler{
		service: service,
		logger:  logger.With().Str("component", "credential_handler").Logger(),
	}
}

// Register attaches the credential routes. Callers rate limit the group.
func (h *CredentialHandler) Register(router fiber.Router) {
	router.Get("/:token", h.status)
	router.Post("/:token/redeem", h.redeem)
	router.Get("/:token/pdf", h.pdf)
}

func (h *CredentialHandler) status(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	status, err := h.service.Status(c.UserContext(), token)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "credential status", status)
}

// redeem reveals the plaintext credentials exactly once.
func (h *CredentialHandler) redeem(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	credential, err := h.service.Redeem(c.UserContext(), token)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return utils.SendSuccess(c, "credential redeemed", credential)
}

func (h *CredentialHandler) pdf(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	content, err := h.service.RedeemPDF(c.UserContext(), token)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return sendAttachment(c, fmt.Sprintf("credenciais-%s.pdf", shortToken(token)), pdfContentType, content)
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
