package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/techcodes/backend/internal/models"
	"github.com/techcodes/backend/internal/service"
	"github.com/techcodes/backend/internal/sheet"
)

// multipartOverhead leaves room for the form boundaries and part headers on
// top of the file itself.
const multipartOverhead = 64 << 10

type Handler struct {
	Service        *service.DispatchService
	Validator      *validator.Validate
	Logger         zerolog.Logger
	MaxUploadBytes int64
}

type BatchSummary struct {
	ID              string         `json:"id"`
	SourceName      string         `json:"source_name"`
	ProcessedAt     time.Time      `json:"processed_at"`
	TimestampSource string         `json:"timestamp_source"`
	Records         int            `json:"records"`
	Sent            int            `json:"sent"`
	Categories      map[string]int `json:"categories"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Service.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Store unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Import a ticket sheet
// @Description Upload a form export (.xlsx or .csv). Replaces the current working set.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "tickets.xlsx"
// @Success 200 {object} service.ImportSummary
// @Failure 400 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		limit := h.MaxUploadBytes + multipartOverhead
		if c.Request.ContentLength > limit {
			writeError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds upload limit", c.Request.ContentLength)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds upload limit", tooLarge.Limit)
			return
		}
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file required", nil)
		return
	}
	if !validateExt(fh.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_FILE", "file must be .xlsx or .csv", nil)
		return
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds upload limit", fh.Size)
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_FILE", "cannot open upload", err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_FILE", "cannot read upload", err.Error())
		return
	}

	summary, err := h.Service.Import(c.Request.Context(), filepath.Base(fh.Filename), data)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Current batch
// @Tags batch
// @Produce json
// @Success 200 {object} BatchSummary
// @Failure 404 {object} map[string]any
// @Router /api/batch [get]
func (h *Handler) BatchInfo(c *gin.Context) {
	b, err := h.Service.Batch(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BatchSummary{
		ID:              b.ID,
		SourceName:      b.SourceName,
		ProcessedAt:     b.ProcessedAt,
		TimestampSource: b.TimestampSource,
		Records:         len(b.Records),
		Sent:            b.SentCount(),
		Categories:      b.CategoryCounts(),
	})
}

// @Summary List tickets
// @Description Records in sequencing order. Sent records are hidden unless show_sent=true.
// @Tags tickets
// @Produce json
// @Param show_sent query bool false "Include sent records"
// @Param category query string false "TAP/NAP, MCO, Recableado or Otro"
// @Success 200 {object} map[string]any
// @Router /api/tickets [get]
func (h *Handler) TicketsList(c *gin.Context) {
	showSent, _ := strconv.ParseBool(c.DefaultQuery("show_sent", "false"))

	var category *models.Category
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		parsed, err := models.ParseCategory(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "unknown category", raw)
			return
		}
		category = &parsed
	}

	items, err := h.Service.List(c.Request.Context(), showSent)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	if category != nil {
		filtered := items[:0]
		for _, r := range items {
			if r.Category == *category {
				filtered = append(filtered, r)
			}
		}
		items = filtered
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// @Summary Ticket details
// @Tags tickets
// @Produce json
// @Param code path string true "Ticket code or sheet row number"
// @Success 200 {object} models.Record
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/tickets/{code} [get]
func (h *Handler) TicketDetails(c *gin.Context) {
	rec, err := h.Service.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type MessageRequest struct {
	Token string `json:"token" validate:"omitempty,max=64"`
}

// @Summary Render a message with a token
// @Description The token is rendered into the message and link only; it is not stored.
// @Tags tickets
// @Accept json
// @Produce json
// @Param code path string true "Ticket code or sheet row number"
// @Param body body MessageRequest false "Token"
// @Success 200 {object} service.Dispatch
// @Router /api/tickets/{code}/message [post]
func (h *Handler) TicketMessage(c *gin.Context) {
	var req MessageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	d, err := h.Service.Message(c.Request.Context(), c.Param("code"), req.Token)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type SentRequest struct {
	Sent *bool `json:"sent" validate:"required"`
}

// @Summary Toggle the sent flag
// @Tags tickets
// @Accept json
// @Produce json
// @Param code path string true "Ticket code or sheet row number"
// @Param body body SentRequest true "Sent flag"
// @Success 200 {object} models.Record
// @Router /api/tickets/{code}/sent [post]
func (h *Handler) MarkSent(c *gin.Context) {
	var req SentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	rec, err := h.Service.MarkSent(c.Request.Context(), c.Param("code"), *req.Sent)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary Export the consolidated sheet
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param format query string false "xlsx (default) or csv"
// @Success 200 {file} file
// @Router /api/export [get]
func (h *Handler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", sheet.FormatXLSX))
	mime := sheet.MimeXLSX
	switch format {
	case sheet.FormatXLSX:
	case sheet.FormatCSV:
		mime = sheet.MimeCSV
	default:
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be xlsx or csv", format)
		return
	}

	var buf bytes.Buffer
	if err := h.Service.Export(c.Request.Context(), format, &buf); err != nil {
		h.serviceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="mensajes_generados.%s"`, format))
	c.Data(http.StatusOK, mime, buf.Bytes())
}

func (h *Handler) serviceError(c *gin.Context, err error) {
	var missing *service.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		writeError(c, http.StatusUnprocessableEntity, "MISSING_COLUMNS", "Required columns not found", missing.Missing)
	case len(service.TimestampErrors(err)) > 0:
		rows := service.TimestampErrors(err)
		details := make([]gin.H, 0, len(rows))
		for _, r := range rows {
			details = append(details, gin.H{"row": r.Row, "value": r.Value})
		}
		writeError(c, http.StatusUnprocessableEntity, "UNPARSEABLE_TIMESTAMP", "Start time could not be parsed", details)
	case errors.Is(err, sheet.ErrUnsupportedFormat), errors.Is(err, sheet.ErrEmptySheet), errors.Is(err, sheet.ErrUnreadable):
		writeError(c, http.StatusBadRequest, "INVALID_FILE", err.Error(), nil)
	case errors.Is(err, service.ErrNoBatch):
		writeError(c, http.StatusNotFound, "NO_BATCH", "No batch imported", nil)
	case errors.Is(err, service.ErrRecordNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
	case errors.Is(err, service.ErrAmbiguousCode):
		writeError(c, http.StatusConflict, "AMBIGUOUS_CODE", "Code matches several rows, use the row number", nil)
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Request failed", err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func validateExt(name string) bool {
	_, err := sheet.FormatFromName(name)
	return err == nil
}
