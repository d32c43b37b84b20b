package documents

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
)

// multipart overhead allowed on top of the file limits
const formSlack = 1 << 20

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/documents")
	g.POST("/upload", h.upload)
	g.POST("/upload-multiple", h.uploadMultiple)
	g.GET("", h.list)
	g.GET("/:companyId/:filename", h.view)
	g.GET("/:companyId/:filename/download", h.download)
	g.GET("/:companyId/:filename/text", h.text)
	g.DELETE("/:companyId/:filename", h.delete)
	g.PATCH("/:companyId/:filename/status/:status", h.setStatus)
}

// RegisterPublicRoutes attaches the unauthenticated avatar upload.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/file-handle/image/avatar", h.uploadAvatar)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formSlack)
	fileHeader, err := c.FormFile("document")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}
	doc, err := h.store(c, fileHeader)
	if err != nil {
		writeError(c, err, "failed to upload document")
		return
	}
	respond.Success(c, http.StatusCreated, "File uploaded successfully", toUploadResponse(doc))
}

func (h *Handler) uploadMultiple(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBatchUploads*MaxUploadSize+formSlack)
	form, err := c.MultipartForm()
	if err != nil || len(form.File["documents"]) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No files uploaded", nil)
		return
	}
	files := form.File["documents"]
	if len(files) > MaxBatchUploads {
		respond.Error(c, http.StatusBadRequest, "validation_error", fmt.Sprintf("At most %d files can be uploaded at once", MaxBatchUploads), nil)
		return
	}
	// Check every file first so a bad entry does not leave a partial batch behind.
	for _, fh := range files {
		if !allowedType(cleanMime(fh.Header.Get("Content-Type"))) {
			writeError(c, fmt.Errorf("%w: %s", ErrUnsupported, fh.Filename), "failed to upload documents")
			return
		}
		if fh.Size > MaxUploadSize {
			writeError(c, fmt.Errorf("%w: %s", ErrTooLarge, fh.Filename), "failed to upload documents")
			return
		}
	}
	out := make([]uploadResponse, 0, len(files))
	for _, fh := range files {
		doc, err := h.store(c, fh)
		if err != nil {
			writeError(c, err, "failed to upload documents")
			return
		}
		out = append(out, toUploadResponse(doc))
	}
	respond.Success(c, http.StatusCreated, fmt.Sprintf("%d files uploaded successfully", len(out)), out)
}

func (h *Handler) store(c *gin.Context, fh *multipart.FileHeader) (Document, error) {
	file, err := fh.Open()
	if err != nil {
		return Document{}, fmt.Errorf("%w: unable to read file", ErrInvalidInput)
	}
	defer file.Close()
	return h.Svc.Upload(c.Request.Context(), middleware.CompanyIDFromContext(c), Upload{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
	}, file)
}

func (h *Handler) list(c *gin.Context) {
	var status *Status
	if raw := c.Query("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "status must be one of QUEUED, SYNCED, FAILED", nil)
			return
		}
		status = &st
	}
	docs, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c), status)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}
	out := listResponse{Total: len(docs), Documents: make([]documentResponse, 0, len(docs))}
	for _, d := range docs {
		out.Documents = append(out.Documents, toDocumentResponse(d))
	}
	respond.Success(c, http.StatusOK, "Documents fetched successfully", out)
}

func (h *Handler) view(c *gin.Context) {
	h.serve(c, "inline")
}

func (h *Handler) download(c *gin.Context) {
	h.serve(c, "attachment")
}

func (h *Handler) serve(c *gin.Context, disposition string) {
	doc, err := h.Svc.Locate(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("companyId"), c.Param("filename"))
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	c.Header("X-Company-Id", doc.CompanyID)
	if disposition == "attachment" {
		url, ok, err := h.Svc.DownloadURL(c.Request.Context(), doc)
		if err != nil {
			writeError(c, err, "failed to prepare download")
			return
		}
		if ok {
			c.Redirect(http.StatusFound, url)
			return
		}
	}
	body, err := h.Svc.Open(c.Request.Context(), doc)
	if err != nil {
		writeError(c, err, "failed to open document")
		return
	}
	defer body.Close()
	c.Header("Content-Type", ContentTypeFor(doc.Filename))
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.OriginalName))
	if doc.Size > 0 {
		c.Header("Content-Length", fmt.Sprint(doc.Size))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) text(c *gin.Context) {
	doc, err := h.Svc.Locate(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("companyId"), c.Param("filename"))
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	text, err := h.Svc.Text(c.Request.Context(), doc)
	if err != nil {
		writeError(c, err, "failed to extract text")
		return
	}
	c.Header("X-Company-Id", doc.CompanyID)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *Handler) delete(c *gin.Context) {
	doc, err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("companyId"), c.Param("filename"))
	if err != nil {
		writeError(c, err, "failed to delete document")
		return
	}
	respond.Success(c, http.StatusOK, "File deleted successfully", gin.H{"filename": doc.Filename, "deleted": true})
}

func (h *Handler) setStatus(c *gin.Context) {
	status, ok := ParseStatus(c.Param("status"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be one of synced, queued, failed", nil)
		return
	}
	doc, err := h.Svc.SetStatus(c.Request.Context(), middleware.CompanyIDFromContext(c), c.Param("companyId"), c.Param("filename"), status)
	if err != nil {
		writeError(c, err, "failed to update document status")
		return
	}
	respond.Success(c, http.StatusOK, "Document status updated successfully", toUploadResponse(doc))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAvatarSize+formSlack)
	fh, err := c.FormFile("avatar")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}
	file, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()
	url, err := h.Svc.SaveAvatar(c.Request.Context(), fh.Header.Get("Content-Type"), fh.Size, file)
	if err != nil {
		writeError(c, err, "failed to upload avatar")
		return
	}
	respond.Success(c, http.StatusCreated, "Avatar uploaded successfully", gin.H{"url": url})
}

func writeError(c *gin.Context, err error, fallback string) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "Access denied", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
	case errors.Is(err, ErrTooLarge), errors.As(err, &tooBig):
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error(), nil)
	case errors.Is(err, ErrUnsupported):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
