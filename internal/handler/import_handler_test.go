package handler_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/handler"
	"github.com/noah-isme/acompanha-api/internal/service"
)

type mockImportService struct {
	service.ImportService

	received string
}

func (m *mockImportService) ImportTeachers(_ context.Context, _ service.ActivityActor, r io.Reader) (dto.ImportResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return dto.ImportResult{}, err
	}
	m.received = string(body)
	if m.received == "not a workbook" {
		return dto.ImportResult{}, service.ErrImportInvalid
	}
	return dto.ImportResult{
		SuccessCount: 2,
		Errors:       []dto.RowIssue{{Row: 4, Message: "invalid NIF"}},
		Warnings:     []dto.RowIssue{},
	}, nil
}

func (m *mockImportService) TeacherTemplate() (service.Report, error) {
	return service.Report{Filename: "modelo-professores.xlsx", Content: []byte("PK\x03\x04")}, nil
}

func newImportApp() (*fiber.App, *mockImportService) {
	imports := &mockImportService{}
	app := fiber.New()
	handler.NewImportHandler(imports, testLogger()).Register(app.Group("/imports"))
	return app, imports
}

func TestImportHandlerTeachers(t *testing.T) {
	app, imports := newImportApp()

	resp, env := perform(t, app, multipartRequest(t, "/imports/teachers", "professores.xlsx", []byte("workbook bytes")))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "workbook bytes", imports.received)

	var result dto.ImportResult
	decodeData(t, env, &result)
	require.Equal(t, 2, result.SuccessCount)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 4, result.Errors[0].Row)
}

func TestImportHandlerRejectsUnreadableWorkbook(t *testing.T) {
	app, _ := newImportApp()

	resp, _ := perform(t, app, multipartRequest(t, "/imports/teachers", "professores.xlsx", []byte("not a workbook")))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env := perform(t, app, jsonRequest(t, http.MethodPost, "/imports/teachers", nil))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "file is required", env.Message)
}

func TestImportHandlerTemplateDownload(t *testing.T) {
	app, _ := newImportApp()

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/imports/templates/teachers", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get(fiber.HeaderContentType))
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "modelo-professores.xlsx")
}
