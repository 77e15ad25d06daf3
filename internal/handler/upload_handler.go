package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"xupload/internal/services"
	"xupload/internal/transport/httpdto"
	xupload_errors "xupload/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	deleteMethod   = "delete"
	outcomeHeader  = "X-Upload-Outcome"
	multipartSlack = 1 << 20
)

type UploadHandlerOptions struct {
	// FileField is the multipart field read first; any file part is accepted otherwise.
	FileField string
	// SubfolderVar names the query parameter that overrides the date subfolder.
	SubfolderVar string
	MaxSize      int64
}

type UploadHandler struct {
	service *services.UploadService
	opts    UploadHandlerOptions
}

func NewUploadHandler(service *services.UploadService, opts UploadHandlerOptions) *UploadHandler {
	return &UploadHandler{service: service, opts: opts}
}

// Handle serves both widget calls on one route: ?_method=delete deletes,
// anything else uploads.
func (h *UploadHandler) Handle(c *gin.Context) {
	c.Header("Vary", "Accept")

	id, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(xupload_errors.ErrUnauthorized)
		return
	}

	var q httpdto.DeleteRequest
	_ = c.ShouldBindQuery(&q)
	if q.Method == deleteMethod {
		h.delete(c, id, q)
		return
	}
	h.upload(c, id)
}

func (h *UploadHandler) upload(c *gin.Context, id services.Identity) {
	fh, err := h.bindFile(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	res, err := h.service.Upload(c.Request.Context(), services.UploadInput{
		Identity:  id,
		Subfolder: h.requestedSubfolder(c),
		File:      fh,
	})
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		h.write(c, http.StatusOK, httpdto.FileErrorsResponse{
			Files: []httpdto.FileError{{Error: verr.Errors}},
		})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	if res.Outcome == services.OutcomePartial {
		c.Header(outcomeHeader, string(res.Outcome))
	}
	h.write(c, http.StatusOK, httpdto.FilesResponse{
		Files: []httpdto.FileDescriptor{{
			Name:         res.Name,
			Type:         res.Type,
			Size:         res.Size,
			URL:          res.URL,
			ThumbnailURL: res.ThumbnailURL,
			DeleteURL:    h.deleteURL(c, res.Filename, res.Folder),
			DeleteType:   http.MethodPost,
			SyncStatus:   res.Outcome.SyncStatus(),
		}},
	})
}

func (h *UploadHandler) delete(c *gin.Context, id services.Identity, q httpdto.DeleteRequest) {
	ok, err := h.service.Delete(c.Request.Context(), services.DeleteInput{
		Identity:  id,
		Filename:  q.File,
		Subfolder: h.requestedSubfolder(c),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.write(c, http.StatusOK, ok)
}

// bindFile returns the configured file field, or the first file part when
// that field is absent.
func (h *UploadHandler) bindFile(c *gin.Context) (*multipart.FileHeader, error) {
	if h.opts.MaxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxSize+multipartSlack)
	}

	fh, err := c.FormFile(h.opts.FileField)
	if err == nil {
		return fh, nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, xupload_errors.ErrTooLarge
	}
	if !errors.Is(err, http.ErrMissingFile) || c.Request.MultipartForm == nil {
		return nil, xupload_errors.ErrMissingFile
	}

	fields := make([]string, 0, len(c.Request.MultipartForm.File))
	for field := range c.Request.MultipartForm.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if files := c.Request.MultipartForm.File[field]; len(files) > 0 {
			return files[0], nil
		}
	}
	return nil, xupload_errors.ErrMissingFile
}

func (h *UploadHandler) requestedSubfolder(c *gin.Context) string {
	if h.opts.SubfolderVar == "" {
		return ""
	}
	return c.Query(h.opts.SubfolderVar)
}

// deleteURL points back at this route with the delete marker.
func (h *UploadHandler) deleteURL(c *gin.Context, filename, folder string) string {
	q := url.Values{}
	q.Set("_method", deleteMethod)
	q.Set("file", filename)
	if h.opts.SubfolderVar != "" {
		q.Set(h.opts.SubfolderVar, folder)
	}
	return c.Request.URL.Path + "?" + q.Encode()
}

// write sends v as JSON text, labelled application/json only when Accept asks for it.
func (h *UploadHandler) write(c *gin.Context, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		return
	}
	contentType := "text/plain"
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		contentType = "application/json"
	}
	c.Data(status, contentType, body)
}
