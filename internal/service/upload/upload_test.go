package upload

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/internal/testutils"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

func newService() (*UploadService, *testutils.Objects, *testutils.Objects) {
	thumbs := testutils.NewObjects("thumbnails")
	subs := testutils.NewObjects("submissions")
	return NewUploadService(logger.Discard(), thumbs, subs), thumbs, subs
}

func file(name, contentType string, data []byte) File {
	return File{Name: name, ContentType: contentType, Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func TestUploadThumbnail(t *testing.T) {
	svc, thumbs, _ := newService()
	ctx := context.Background()

	key, err := svc.UploadThumbnail(ctx, file("My Cover (1).png", "image/png", []byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, "-My-Cover-1-.png"), key)
	assert.Equal(t, []string{key}, thumbs.Keys())

	obj, err := svc.Thumbnail(ctx, key)
	require.NoError(t, err)
	defer obj.Body.Close()
	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestUploadThumbnail_ContentTypeFallback(t *testing.T) {
	svc, thumbs, _ := newService()

	key, err := svc.UploadThumbnail(context.Background(), file("logo.png", "application/octet-stream", []byte("\x89PNG")))
	require.NoError(t, err)

	obj, err := thumbs.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestUploadThumbnail_RejectsSVG(t *testing.T) {
	svc, thumbs, _ := newService()
	ctx := context.Background()

	_, err := svc.UploadThumbnail(ctx, file("logo.svg", "image/svg+xml", []byte("<svg onload=\"alert(1)\"/>")))
	assert.ErrorIs(t, err, app_errors.ErrNotImage)

	_, err = svc.UploadThumbnail(ctx, file("logo.svg", "application/octet-stream", []byte("<svg/>")))
	assert.ErrorIs(t, err, app_errors.ErrNotImage)

	assert.Empty(t, thumbs.Keys())
}

func TestUploadThumbnail_Rejections(t *testing.T) {
	svc, thumbs, _ := newService()
	ctx := context.Background()

	_, err := svc.UploadThumbnail(ctx, file("notes.pdf", "application/pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, app_errors.ErrNotImage)

	_, err = svc.UploadThumbnail(ctx, file("empty.png", "image/png", nil))
	assert.ErrorIs(t, err, app_errors.ErrEmptyFile)

	big := File{Name: "big.png", ContentType: "image/png", Size: MaxThumbnailSize + 1, Body: bytes.NewReader(nil)}
	_, err = svc.UploadThumbnail(ctx, big)
	assert.ErrorIs(t, err, app_errors.ErrFileSize)

	assert.Empty(t, thumbs.Keys())
}

func TestDeleteThumbnail(t *testing.T) {
	svc, thumbs, _ := newService()
	ctx := context.Background()
	key := thumbs.Seed("k-cover.png", "image/png", []byte("x"))

	require.NoError(t, svc.DeleteThumbnail(ctx, key))
	assert.Empty(t, thumbs.Keys())
	assert.ErrorIs(t, svc.DeleteThumbnail(ctx, key), app_errors.ErrObjectNotFound)
}

func TestSubmissions(t *testing.T) {
	svc, _, subs := newService()
	ctx := context.Background()
	student := testutils.Session(models.RoleUser)

	key, err := svc.UploadSubmission(ctx, student, file("../../etc/project.pdf", "", []byte("%PDF")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, student.UserID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, "-project.pdf"))
	assert.Equal(t, []string{key}, subs.Keys())

	url, err := svc.SubmissionURL(ctx, student, key)
	require.NoError(t, err)
	assert.Contains(t, url, key)

	_, err = svc.SubmissionURL(ctx, testutils.Session(models.RoleAdmin), key)
	assert.NoError(t, err)

	_, err = svc.SubmissionURL(ctx, testutils.Session(models.RoleUser), key)
	assert.ErrorIs(t, err, app_errors.ErrNotFileOwner)

	_, err = svc.SubmissionURL(ctx, student, student.UserID.String()+"/missing.pdf")
	assert.ErrorIs(t, err, app_errors.ErrObjectNotFound)
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../secret.txt":    "secret.txt",
		`C:\Users\me\cv.docx`: "cv.docx",
		"my file (final).zip": "my-file-final-.zip",
		"":                    "file",
		"...":                 "file",
		"привет.png":          "png",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), "input %q", in)
	}
}
