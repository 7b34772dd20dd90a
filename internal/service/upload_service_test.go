package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestUploadServiceRejectsSize(t *testing.T) {
	store := newMemoryBlobStore()
	svc := NewUploadService(store, 1, testLogger())

	_, err := svc.Store(context.Background(), "evaluations/1", "file.pdf", bytes.NewReader(bytes.Repeat([]byte("a"), 2*1024*1024)))
	require.ErrorIs(t, err, ErrAttachmentTooLarge)
	require.Zero(t, store.count())
}

func TestUploadServiceTypeValidation(t *testing.T) {
	svc := NewUploadService(newMemoryBlobStore(), 5, testLogger())

	_, err := svc.Store(context.Background(), "evaluations/1", "file.txt", strings.NewReader("plain text"))
	require.ErrorIs(t, err, ErrAttachmentTypeNotAllowed)
}

func TestUploadServiceStoresAttachment(t *testing.T) {
	store := newMemoryBlobStore()
	svc := NewUploadService(store, 5, testLogger())

	stored, err := svc.Store(context.Background(), "/evaluations/7/", "Plano de Aula.PNG", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored.Key, "evaluations/7/"))
	require.True(t, strings.HasSuffix(stored.Key, "_plano-de-aula.png"))
	require.Equal(t, "image/png", stored.MimeType)
	require.Equal(t, "Plano de Aula.PNG", stored.OriginalFilename)
	require.EqualValues(t, len(pngHeader), stored.Size)
	require.Len(t, stored.Checksum, 64)
	require.Equal(t, 1, store.count())

	svc.Remove(context.Background(), stored.Key)
	require.Zero(t, store.count())
	// Removing twice is silent.
	svc.Remove(context.Background(), stored.Key)
}

func TestUploadServiceScansOfficeArchives(t *testing.T) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, name := range []string{"[Content_Types].xml", "xl/workbook.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<xml/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	svc := NewUploadService(newMemoryBlobStore(), 5, testLogger()).(*uploadService)
	require.NoError(t, svc.scan(buf.Bytes(), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	require.ErrorIs(t, svc.scan([]byte("not a zip"), "application/zip"), ErrUploadScanFailed)
	require.NoError(t, svc.scan([]byte("%PDF-1.4"), "application/pdf"))
}

func TestUploadServiceStoreImage(t *testing.T) {
	store := newMemoryBlobStore()
	svc := NewUploadService(store, 1, testLogger())

	stored, err := svc.StoreImage(context.Background(), "signatures/3", pngHeader)
	require.NoError(t, err)
	require.Equal(t, "image/png", stored.MimeType)
	require.True(t, strings.HasSuffix(stored.Key, "_signature.png"))

	_, err = svc.StoreImage(context.Background(), "signatures/3", []byte("%PDF-1.4 not an image"))
	require.ErrorIs(t, err, ErrInvalidSignatureImage)

	store.failPut = errors.New("bucket unavailable")
	_, err = svc.StoreImage(context.Background(), "signatures/3", pngHeader)
	require.EqualError(t, err, "bucket unavailable")
}

func TestSanitizeFileName(t *testing.T) {
	require.Equal(t, "relat-rio-final.pdf", sanitizeFileName("Relatório Final.PDF"))
	require.Equal(t, "notes.bin", sanitizeFileName("notes"))
	require.Equal(t, "application/zip", normalizeMime("application/x-zip-compressed"))
	require.Equal(t, "text/plain", normalizeMime("text/plain; charset=utf-8"))
}
