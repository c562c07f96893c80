package upload

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

const (
	MaxThumbnailSize  = 5 << 20
	MaxSubmissionSize = 20 << 20

	maxNameLength = 100
	octetStream   = "application/octet-stream"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type objectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*models.Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	PresignedURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// File is an upload as received from the client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadService struct {
	log         logger.Log
	thumbnails  objectStore
	submissions objectStore
}

func NewUploadService(log logger.Log, thumbnails, submissions objectStore) *UploadService {
	return &UploadService{log: log, thumbnails: thumbnails, submissions: submissions}
}

// thumbnailTypes are the raster formats served back from the API origin. SVG is
// excluded because it can carry script.
var thumbnailTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
}

// UploadThumbnail stores a course image and returns its key.
func (s *UploadService) UploadThumbnail(ctx context.Context, f File) (string, error) {
	if err := checkSize(f.Size, MaxThumbnailSize); err != nil {
		return "", err
	}
	contentType := detectContentType(f)
	if !thumbnailTypes[contentType] {
		return "", app_errors.ErrNotImage
	}

	key := uuid.NewString() + "-" + SanitizeName(f.Name)
	if err := s.thumbnails.Put(ctx, key, f.Body, f.Size, contentType); err != nil {
		return "", err
	}
	s.log.Info("thumbnail uploaded", "key", key, "size", f.Size)
	return key, nil
}

// UploadSubmission stores a project file under the uploader's namespace.
func (s *UploadService) UploadSubmission(ctx context.Context, actor *models.Session, f File) (string, error) {
	if err := checkSize(f.Size, MaxSubmissionSize); err != nil {
		return "", err
	}

	key := actor.UserID.String() + "/" + uuid.NewString() + "-" + SanitizeName(f.Name)
	if err := s.submissions.Put(ctx, key, f.Body, f.Size, detectContentType(f)); err != nil {
		return "", err
	}
	s.log.Info("submission file uploaded", "key", key, "user_id", actor.UserID, "size", f.Size)
	return key, nil
}

func (s *UploadService) Thumbnail(ctx context.Context, key string) (*models.Object, error) {
	return s.thumbnails.Get(ctx, key)
}

func (s *UploadService) DeleteThumbnail(ctx context.Context, key string) error {
	ok, err := s.thumbnails.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return app_errors.ErrObjectNotFound
	}
	return s.thumbnails.Delete(ctx, key)
}

// SubmissionURL returns a short-lived download link. Only the uploader and admins may read a submission.
func (s *UploadService) SubmissionURL(ctx context.Context, actor *models.Session, key string) (string, error) {
	if !strings.HasPrefix(key, actor.UserID.String()+"/") && !actor.IsAdmin() {
		return "", app_errors.ErrNotFileOwner
	}
	ok, err := s.submissions.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", app_errors.ErrObjectNotFound
	}
	return s.submissions.PresignedURL(ctx, key)
}

func checkSize(size, limit int64) error {
	if size <= 0 {
		return app_errors.ErrEmptyFile
	}
	if size > limit {
		return app_errors.ErrFileSize
	}
	return nil
}

// detectContentType trusts the declared type unless it is missing or generic,
// then falls back to the file extension.
func detectContentType(f File) string {
	ct := strings.TrimSpace(f.ContentType)
	if ct != "" && ct != octetStream {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return octetStream
}

// SanitizeName keeps the base name of an uploaded file safe for use in an object key.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	if name == "" {
		return "file"
	}
	return name
}
