package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/extract"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/metrics"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/object"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/util"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrForbidden    = errors.New("access to this company's documents is denied")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported file type")
	ErrTooLarge     = errors.New("file too large")
)

const defaultPresignTTL = 15 * time.Minute

type Service struct {
	Store object.Store
	// Avatars is rooted at the public directory served under /public.
	Avatars    object.Store
	Events     queue.Publisher
	PresignTTL time.Duration
	Now        func() time.Time
}

// syncRequest is the payload of documents.sync.requested.
type syncRequest struct {
	CompanyID    string `json:"companyId"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Key          string `json:"key"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

// Upload stores the file in the queued folder and requests a sync.
func (s *Service) Upload(ctx context.Context, companyID string, in Upload, r io.Reader) (Document, error) {
	if s == nil || s.Store == nil {
		return Document{}, errors.New("documents service not configured")
	}
	companyID = util.SanitizeCompanyID(companyID)
	if companyID == "" {
		return Document{}, ErrForbidden
	}
	mimeType := cleanMime(in.MimeType)
	if !allowedType(mimeType) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	if in.Size > MaxUploadSize {
		return Document{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxUploadSize)
	}

	now := s.now()
	doc := Document{
		CompanyID:  companyID,
		Filename:   storedName(now, in.Name),
		MimeType:   mimeType,
		Status:     StatusQueued,
		UploadedAt: now,
	}
	doc.OriginalName = originalName(doc.Filename)

	size, err := s.Store.Put(ctx, doc.Key(), mimeType, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return Document{}, err
	}
	if size > MaxUploadSize {
		_ = s.Store.Delete(context.WithoutCancel(ctx), doc.Key())
		return Document{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxUploadSize)
	}
	doc.Size = size

	_ = queue.PublishEvent(ctx, s.Events, queue.SubjectDocumentSyncRequested, companyID, telemetry.RequestID(ctx), syncRequest{
		CompanyID:    companyID,
		Filename:     doc.Filename,
		OriginalName: doc.OriginalName,
		Key:          doc.Key(),
		MimeType:     mimeType,
		Size:         size,
	})
	metrics.IncDocumentsUploaded(1)
	telemetry.Info("documents.upload.ok", map[string]any{
		"company_id": companyID,
		"filename":   doc.Filename,
		"size":       size,
	})
	return doc, nil
}

// List returns the company's documents newest first. A nil status lists every folder.
func (s *Service) List(ctx context.Context, companyID string, status *Status) ([]Document, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("documents service not configured")
	}
	companyID = util.SanitizeCompanyID(companyID)
	wanted := statuses
	if status != nil {
		wanted = []Status{*status}
	}
	var out []Document
	for _, st := range wanted {
		infos, err := s.Store.List(ctx, companyID+"/"+st.folder())
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			out = append(out, fromInfo(companyID, st, info))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

// Locate finds a document by stored name. The path company must match the
// caller's and must already be in sanitized form.
func (s *Service) Locate(ctx context.Context, callerCompanyID, pathCompanyID, filename string) (Document, error) {
	if s == nil || s.Store == nil {
		return Document{}, errors.New("documents service not configured")
	}
	companyID := util.SanitizeCompanyID(pathCompanyID)
	if companyID == "" || companyID != pathCompanyID || companyID != util.SanitizeCompanyID(callerCompanyID) {
		return Document{}, ErrForbidden
	}
	return s.find(ctx, companyID, filename)
}

func (s *Service) find(ctx context.Context, companyID, filename string) (Document, error) {
	if err := util.ValidateStoredName(filename); err != nil {
		return Document{}, fmt.Errorf("%w: invalid filename", ErrInvalidInput)
	}
	for _, st := range statuses {
		info, err := s.Store.Stat(ctx, objectKey(companyID, st, filename))
		if errors.Is(err, object.ErrNotFound) {
			continue
		}
		if err != nil {
			return Document{}, err
		}
		return fromInfo(companyID, st, info), nil
	}
	return Document{}, ErrNotFound
}

func (s *Service) Open(ctx context.Context, doc Document) (io.ReadCloser, error) {
	rc, err := s.Store.Open(ctx, doc.Key())
	if errors.Is(err, object.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rc, err
}

// DownloadURL returns a presigned URL when the store supports it.
func (s *Service) DownloadURL(ctx context.Context, doc Document) (string, bool, error) {
	p, ok := s.Store.(object.Presigner)
	if !ok {
		return "", false, nil
	}
	ttl := s.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	url, err := p.PresignGet(ctx, doc.Key(), ttl, doc.OriginalName)
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

// Text returns the extracted plain text, capped at TextLimit bytes.
func (s *Service) Text(ctx context.Context, doc Document) (string, error) {
	text, err := extract.ExtractText(ctx, s.Store, doc.Key(), doc.MimeType, doc.Filename, TextLimit)
	switch {
	case errors.Is(err, extract.ErrUnsupported):
		return "", fmt.Errorf("%w: text preview is not available for %s", ErrUnsupported, doc.MimeType)
	case errors.Is(err, object.ErrNotFound):
		return "", ErrNotFound
	}
	return text, err
}

func (s *Service) Delete(ctx context.Context, callerCompanyID, pathCompanyID, filename string) (Document, error) {
	doc, err := s.Locate(ctx, callerCompanyID, pathCompanyID, filename)
	if err != nil {
		return Document{}, err
	}
	if err := s.Store.Delete(ctx, doc.Key()); err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	telemetry.Info("documents.delete.ok", map[string]any{"company_id": doc.CompanyID, "filename": filename})
	return doc, nil
}

// SetStatus moves a caller-owned document to the folder for status.
func (s *Service) SetStatus(ctx context.Context, callerCompanyID, pathCompanyID, filename string, status Status) (Document, error) {
	if _, err := s.Locate(ctx, callerCompanyID, pathCompanyID, filename); err != nil {
		return Document{}, err
	}
	return s.MoveTo(ctx, pathCompanyID, filename, status)
}

// MoveTo moves a document between folders without a caller check. The worker
// uses it to apply sync results.
func (s *Service) MoveTo(ctx context.Context, companyID, filename string, status Status) (Document, error) {
	if s == nil || s.Store == nil {
		return Document{}, errors.New("documents service not configured")
	}
	companyID = util.SanitizeCompanyID(companyID)
	doc, err := s.find(ctx, companyID, filename)
	if err != nil {
		return Document{}, err
	}
	if doc.Status == status {
		return doc, nil
	}
	dst := objectKey(companyID, status, filename)
	if err := s.Store.Move(ctx, doc.Key(), dst); err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	metrics.IncDocumentTransition(string(status))
	telemetry.Info("documents.status.ok", map[string]any{
		"company_id": companyID,
		"filename":   filename,
		"from":       string(doc.Status),
		"to":         string(status),
	})
	doc.Status = status
	return doc, nil
}

// SaveAvatar stores a public image and returns its URL path.
func (s *Service) SaveAvatar(ctx context.Context, mimeType string, size int64, r io.Reader) (string, error) {
	if s == nil || s.Avatars == nil {
		return "", errors.New("avatar storage not configured")
	}
	ext, ok := avatarExtensions[cleanMime(mimeType)]
	if !ok {
		return "", fmt.Errorf("%w: only jpeg, png, gif and webp images are allowed", ErrUnsupported)
	}
	if size > MaxAvatarSize {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxAvatarSize)
	}
	key := fmt.Sprintf("avatars/%d-%s.%s", s.now().UnixMilli(), util.RandomHex(4), ext)
	written, err := s.Avatars.Put(ctx, key, cleanMime(mimeType), io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return "", err
	}
	if written > MaxAvatarSize {
		_ = s.Avatars.Delete(context.WithoutCancel(ctx), key)
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxAvatarSize)
	}
	return "/public/" + key, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ContentTypeFor maps a filename extension to a MIME type.
func ContentTypeFor(filename string) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return "application/octet-stream"
}

func storedName(now time.Time, original string) string {
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), util.RandomHex(4), util.SanitizeFileName(original))
}

// originalName drops the "<millis>-<random>-" prefix of a stored name.
func originalName(stored string) string {
	parts := strings.SplitN(stored, "-", 3)
	if len(parts) < 3 {
		return stored
	}
	return parts[2]
}

func fromInfo(companyID string, status Status, info object.Info) Document {
	name := path.Base(info.Key)
	doc := Document{
		CompanyID:    companyID,
		Filename:     name,
		OriginalName: originalName(name),
		Size:         info.Size,
		MimeType:     ContentTypeFor(name),
		Status:       status,
		UploadedAt:   info.ModifiedAt.UTC(),
	}
	if prefix, _, ok := strings.Cut(name, "-"); ok {
		if ms, err := strconv.ParseInt(prefix, 10, 64); err == nil {
			doc.UploadedAt = time.UnixMilli(ms).UTC()
		}
	}
	return doc
}

func cleanMime(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}
