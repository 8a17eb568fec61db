// Package service exposes statement extraction over HTTP.
package service

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pratik2542/expenso/backend/internal/fx"
	"github.com/pratik2542/expenso/backend/internal/ingest"
)

// StatementHandler serves the statement extraction endpoints.
type StatementHandler struct {
	svc           *ingest.Service
	fx            *fx.Client
	maxUploadSize int64
	log           *slog.Logger
}

// NewStatementHandler wires the handler. fxClient may be nil, which
// disables the rates endpoint.
func NewStatementHandler(svc *ingest.Service, fxClient *fx.Client, maxUploadSize int64, log *slog.Logger) *StatementHandler {
	return &StatementHandler{svc: svc, fx: fxClient, maxUploadSize: maxUploadSize, log: log}
}

// Register mounts the routes on the given router group.
func (h *StatementHandler) Register(r *gin.RouterGroup) {
	r.POST("/statements/extract", h.extract)
	r.GET("/statements/jobs/:id", h.job)
	r.GET("/rates", h.rates)
}

// extract accepts a multipart upload (field "file") or a "text" form
// field, plus optional password, mask, preview, use_ai and async flags.
func (h *StatementHandler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	req := ingest.ExtractRequest{
		Text:     c.PostForm("text"),
		Password: c.PostForm("password"),
		Mask:     c.PostForm("mask") != "false", // masking is on unless explicitly disabled
		Preview:  c.PostForm("preview") == "true",
		UseAI:    c.PostForm("use_ai") != "false",
	}

	if file, header, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
			return
		}
		req.Data = data
		req.Filename = header.Filename
	}

	async := c.PostForm("async") == "true" ||
		(c.PostForm("async") != "false" && h.svc.ShouldProcessAsync(req.Data, req.Filename))
	if async {
		job := h.svc.StartAsync(req)
		c.JSON(http.StatusAccepted, job)
		return
	}

	result, err := h.svc.Extract(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// job reports the state of an asynchronous extraction.
func (h *StatementHandler) job(c *gin.Context) {
	job, ok := h.svc.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown or expired job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// rates returns the latest FX rates for the base currency in ?base=.
func (h *StatementHandler) rates(c *gin.Context) {
	if h.fx == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "rates are not configured"})
		return
	}
	rates, err := h.fx.Latest(c.Request.Context(), c.Query("base"))
	if err != nil {
		h.log.Error("rates lookup failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch rates"})
		return
	}
	c.JSON(http.StatusOK, rates)
}

// writeError maps ingestion errors onto HTTP statuses with guidance a
// statement-uploading user can act on.
func (h *StatementHandler) writeError(c *gin.Context, err error) {
	code := ingest.CodeOf(err)
	status := http.StatusInternalServerError
	msg := err.Error()

	switch code {
	case ingest.ErrPasswordRequired:
		status = http.StatusUnauthorized
	case ingest.ErrIncorrectPassword:
		status = http.StatusForbidden
	case ingest.ErrInputRejected:
		status = http.StatusBadRequest
	case ingest.ErrNoExtractableText:
		status = http.StatusUnprocessableEntity
		msg = "no text layer found; the statement may be scanned images. Try a CSV or XLSX export instead."
	case ingest.ErrEngineUnavailable:
		status = http.StatusUnprocessableEntity
		msg = "the PDF could not be read. Try a CSV or XLSX export of the same statement."
	case ingest.ErrExternalCallFailed:
		status = http.StatusBadGateway
	case ingest.ErrSchemaViolation:
		status = http.StatusBadGateway
	}

	h.log.Warn("extraction request failed", "code", code, "error", err)
	c.JSON(status, gin.H{"success": false, "error": msg, "code": code})
}
