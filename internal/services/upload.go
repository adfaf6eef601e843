package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/gcp"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

const DefaultUploadMaxBytes = 5 << 20

// UploadFile is one part of a multipart upload.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type UploadedImage struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Key  string `json:"key"`
}

type RejectedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type UploadResult struct {
	Uploaded []UploadedImage `json:"uploaded"`
	Rejected []RejectedFile  `json:"rejected"`
}

type UploadService interface {
	UploadLessonImages(ctx context.Context, files []UploadFile) (*UploadResult, error)
}

type uploadService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	bucket   gcp.BucketService
	maxBytes int64
	now      func() time.Time
}

func NewUploadService(log *logger.Logger, userRepo repos.UserRepo, bucket gcp.BucketService, maxBytes int64) UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	return &uploadService{
		log:      log.With("service", "UploadService"),
		userRepo: userRepo,
		bucket:   bucket,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// UploadLessonImages stores each acceptable image in turn. A bad or failed
// file is reported and skipped; files already stored stay stored.
func (s *uploadService) UploadLessonImages(ctx context.Context, files []UploadFile) (*UploadResult, error) {
	admin, err := requireAdmin(ctx, s.userRepo)
	if err != nil {
		return nil, err
	}
	if s.bucket == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "storage_unavailable", errors.New("object storage is not configured"))
	}
	if len(files) == 0 {
		return nil, apierr.Invalid("no_files", "at least one file is required")
	}

	res := &UploadResult{Uploaded: []UploadedImage{}, Rejected: []RejectedFile{}}
	stamp := s.now().UnixMilli()
	for _, f := range files {
		data, contentType, reason := s.readImage(f)
		if reason != "" {
			res.Rejected = append(res.Rejected, RejectedFile{Name: f.Name, Reason: reason})
			continue
		}
		// Same-named files in one batch share a stamp, so the random part keeps keys apart.
		key := fmt.Sprintf("lessons/%s/%d_%s_%s", admin.ID, stamp, uuid.NewString()[:8], safeFilename(f.Name))
		if err := s.bucket.UploadFile(dbctx.Context{Ctx: ctx}, gcp.BucketCategoryLessonImage, key, contentType, bytes.NewReader(data)); err != nil {
			s.log.Warn("Image upload failed", "name", f.Name, "error", err)
			res.Rejected = append(res.Rejected, RejectedFile{Name: f.Name, Reason: "upload_failed"})
			continue
		}
		res.Uploaded = append(res.Uploaded, UploadedImage{
			Name: f.Name,
			URL:  s.bucket.GetPublicURL(gcp.BucketCategoryLessonImage, key),
			Key:  key,
		})
	}
	s.log.Info("Lesson images uploaded", "uploaded", len(res.Uploaded), "rejected", len(res.Rejected))
	return res, nil
}

func (s *uploadService) readImage(f UploadFile) ([]byte, string, string) {
	if f.Size > s.maxBytes {
		return nil, "", "too_large"
	}
	if ct := strings.TrimSpace(f.ContentType); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, "", "not_an_image"
	}
	if f.Open == nil {
		return nil, "", "unreadable"
	}
	rc, err := f.Open()
	if err != nil {
		return nil, "", "unreadable"
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes+1))
	if err != nil {
		return nil, "", "unreadable"
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", "too_large"
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		return nil, "", "not_an_image"
	}
	return data, sniffed, ""
}

// safeFilename keeps the base name's letters, digits, dot, dash and underscore.
func safeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	if out == "" {
		return "image"
	}
	return out
}
