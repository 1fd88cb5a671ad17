package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/itish2003/docqa/models"
	"github.com/itish2003/docqa/services"
)

// User-facing messages. Internal error detail is logged, never returned.
const (
	msgUploaded        = "Document processed successfully."
	msgSessionEnded    = "Session ended."
	msgOnlyPDF         = "Only PDF files are allowed."
	msgUnreadablePDF   = "Could not read the PDF document."
	msgEmptyPDF        = "The PDF document contains no extractable text."
	msgMissingFile     = "A file must be uploaded in the 'file' field."
	msgTooLarge        = "Uploaded file is too large."
	msgUploadFailed    = "Failed to process document."
	msgInvalidBody     = "Invalid request body."
	msgSessionNotFound = "Session not found. Please upload a document first."
	msgAskFailed       = "Failed to generate an answer."
)

// RAGController handles the HTTP requests for the document Q&A API. It
// depends on the RAGService to perform the actual work.
type RAGController struct {
	ragService     services.RAGService
	maxUploadBytes int64
}

func NewRAGController(service services.RAGService, maxUploadBytes int64) *RAGController {
	return &RAGController{
		ragService:     service,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts every endpoint on router.
func (c *RAGController) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", c.Health)
	router.POST("/upload", c.Upload)
	router.POST("/ask", c.Ask)
	router.DELETE("/sessions/:id", c.EndSession)
}

// Health is a pure liveness probe.
func (c *RAGController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthResponse{Status: "healthy"})
}

// Upload is the handler for POST /upload (multipart field "file").
func (c *RAGController) Upload(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abort(ctx, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		abort(ctx, http.StatusUnprocessableEntity, msgMissingFile)
		return
	}
	if c.maxUploadBytes > 0 && header.Size > c.maxUploadBytes {
		abort(ctx, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}

	file := services.UploadedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}
	// Reject by declared type before reading the body into memory.
	if !services.IsPDF(file.Filename, file.ContentType) {
		abort(ctx, http.StatusBadRequest, msgOnlyPDF)
		return
	}

	f, err := header.Open()
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("could not open uploaded file")
		abort(ctx, http.StatusInternalServerError, msgUploadFailed)
		return
	}
	defer f.Close()

	file.Data, err = io.ReadAll(f)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("could not read uploaded file")
		abort(ctx, http.StatusInternalServerError, msgUploadFailed)
		return
	}

	sessionID, err := c.ragService.ProcessDocument(ctx.Request.Context(), file)
	if err != nil {
		status, msg := uploadError(err)
		logFailure(err, status).Str("filename", header.Filename).Msg("upload failed")
		abort(ctx, status, msg)
		return
	}

	ctx.JSON(http.StatusOK, models.UploadResponse{SessionID: sessionID, Message: msgUploaded})
}

// Ask is the handler for POST /ask.
func (c *RAGController) Ask(ctx *gin.Context) {
	var req models.AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, http.StatusUnprocessableEntity, msgInvalidBody)
		return
	}

	response, err := c.ragService.Ask(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			abort(ctx, http.StatusNotFound, msgSessionNotFound)
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("ask failed")
		abort(ctx, http.StatusInternalServerError, msgAskFailed)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// EndSession is the handler for DELETE /sessions/:id.
func (c *RAGController) EndSession(ctx *gin.Context) {
	if err := c.ragService.EndSession(ctx.Request.Context(), ctx.Param("id")); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			abort(ctx, http.StatusNotFound, msgSessionNotFound)
			return
		}
		log.Error().Err(err).Msg("end session failed")
		abort(ctx, http.StatusInternalServerError, msgUploadFailed)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": msgSessionEnded})
}

func uploadError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidDocumentType):
		return http.StatusBadRequest, msgOnlyPDF
	case errors.Is(err, services.ErrDocumentParse):
		return http.StatusBadRequest, msgUnreadablePDF
	case errors.Is(err, services.ErrEmptyDocument):
		return http.StatusBadRequest, msgEmptyPDF
	default:
		return http.StatusInternalServerError, msgUploadFailed
	}
}

func logFailure(err error, status int) *zerolog.Event {
	if status >= http.StatusInternalServerError {
		return log.Error().Err(err)
	}
	return log.Warn().Err(err)
}

func abort(ctx *gin.Context, status int, detail string) {
	ctx.AbortWithStatusJSON(status, models.ErrorResponse{Detail: detail})
}
