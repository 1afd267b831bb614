// Package attachments uploads request and dispute files to the FileStore before they are
// referenced by a request or dispute.
package attachments

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/storage/gcs"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

const (
	maxNameLength = 255
	quotaWindow   = 24 * time.Hour
)

var allowedContentTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/webp":      {},
	"image/heic":      {},
	"application/pdf": {},
	"video/mp4":       {},
}

// FileStore is the object storage the uploads land in.
type FileStore interface {
	Store(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	URLFor(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Quota limits uploads per user within a fixed window.
type Quota interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// UploadInput is one multipart file part.
type UploadInput struct {
	Entity      enums.AttachmentEntity
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

// FileRef is returned to the client and echoed back when creating a request or dispute.
type FileRef struct {
	FileKey     string `json:"fileKey"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	URL         string `json:"url"`
}

type Service interface {
	Upload(ctx context.Context, actor types.Actor, input UploadInput) (*FileRef, error)
}

type service struct {
	store      FileStore
	quota      Quota
	dailyLimit int64
	maxBytes   int64
	logg       *logger.Logger
}

// NewService wires the upload service. A nil quota disables the daily limit.
func NewService(store FileStore, quota Quota, dailyLimit int64, maxUploadMB int, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("file store required")
	}
	if maxUploadMB <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		store:      store,
		quota:      quota,
		dailyLimit: dailyLimit,
		maxBytes:   int64(maxUploadMB) * 1024 * 1024,
		logg:       logg,
	}, nil
}

func (s *service) Upload(ctx context.Context, actor types.Actor, input UploadInput) (*FileRef, error) {
	ctx, span := tracing.Start(ctx, "attachments.upload", attribute.String("entity", string(input.Entity)))
	defer span.End()

	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	switch input.Entity {
	case enums.AttachmentEntityOrderRequest, enums.AttachmentEntityDispute:
		if actor.Role != enums.RoleBuyer && actor.Role != enums.RoleStaff {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers attach files")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity must be order_request or dispute")
	}

	name := cleanName(input.FileName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	contentType, err := normalizeContentType(input.ContentType, name)
	if err != nil {
		return nil, err
	}
	if input.Body == nil || input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file must be at most %d bytes", s.maxBytes)).
			WithDetails(map[string]any{"maxBytes": s.maxBytes})
	}

	if s.quota != nil && s.dailyLimit > 0 {
		allowed, used, err := s.quota.FixedWindowAllow(ctx, "uploads:"+actor.UserID.String(), s.dailyLimit, quotaWindow)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check upload quota")
		}
		if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "daily upload quota reached").
				WithDetails(map[string]any{"limit": s.dailyLimit, "used": used})
		}
	}

	key := gcs.ObjectKey(string(input.Entity), actor.UserID, name)
	written, err := s.store.Store(ctx, key, contentType, io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		tracing.RecordError(span, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store attachment")
	}
	if written > s.maxBytes {
		_ = s.store.Delete(ctx, key)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file must be at most %d bytes", s.maxBytes))
	}

	url, err := s.store.URLFor(ctx, key)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign attachment url")
	}

	logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"file_key": key, "size_bytes": written})
	s.logg.Info(logCtx, "attachment uploaded")

	return &FileRef{
		FileKey:     key,
		Name:        name,
		ContentType: contentType,
		SizeBytes:   written,
		URL:         url,
	}, nil
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if len(name) > maxNameLength {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}

// normalizeContentType trusts the declared type when present, otherwise the extension.
func normalizeContentType(declared, name string) (string, error) {
	contentType := strings.TrimSpace(declared)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	}
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = strings.ToLower(parsed)
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type").
			WithDetails(map[string]any{"contentType": contentType})
	}
	return contentType, nil
}
