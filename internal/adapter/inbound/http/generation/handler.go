package generationhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/session"
	"github.com/modeyang/M-TraeSoloProduct/internal/port/inbound"
	"github.com/modeyang/M-TraeSoloProduct/internal/port/outbound"
	apperrors "github.com/modeyang/M-TraeSoloProduct/internal/shared/errors"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/metrics"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/response"
)

// DefaultMaxUploadBytes bounds request bodies when no limit is configured.
const DefaultMaxUploadBytes = 20 << 20

// HeaderArchived marks a snapshot served from the status archive after its
// session was torn down.
const HeaderArchived = "X-Session-Archived"

var knownStatuses = []generation.Status{
	generation.StatusIdle, generation.StatusRunning, generation.StatusSucceeded, generation.StatusFailed,
}

// Handler handles generation session HTTP requests.
type Handler struct {
	sessions       inbound.SessionServicePort
	uploads        outbound.UploadStorePort
	statuses       outbound.StatusPublisherPort
	metrics        *metrics.Metrics
	logger         *zap.Logger
	maxUploadBytes int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithUploadStore archives accepted images.
func WithUploadStore(store outbound.UploadStorePort) Option {
	return func(h *Handler) { h.uploads = store }
}

// WithStatusArchive serves the last published snapshot of sessions that are
// no longer open.
func WithStatusArchive(archive outbound.StatusPublisherPort) Option {
	return func(h *Handler) { h.statuses = archive }
}

// WithMetrics records submission and description outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithMaxUploadBytes bounds request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandler creates a new generation handler.
func NewHandler(sessions inbound.SessionServicePort, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		sessions:       sessions,
		logger:         logger.Named("generation-http"),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers generation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/kinds", h.ListKinds)

	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", h.OpenSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.CloseSession)

		sessions.POST("/:id/generations", h.Submit)
		sessions.DELETE("/:id/generations", h.Cancel)
		sessions.POST("/:id/descriptions", h.Describe)
		sessions.GET("/:id/download", h.Download)
	}
}

// ListKinds godoc
// @Summary      List generation kinds
// @Tags         generation
// @Produce      json
// @Success      200  {array}   inbound.KindOutput
// @Router       /kinds [get]
func (h *Handler) ListKinds(c *gin.Context) {
	profiles := generation.Profiles()
	out := make([]inbound.KindOutput, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, inbound.KindOutput{
			Kind:           p.Kind,
			Media:          p.Media,
			RequiresPrompt: p.RequiresPrompt,
			ImageArity:     p.ImageArity,
			Options:        p.Options,
			Presets:        p.Presets,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListSessions godoc
// @Summary      List sessions
// @Tags         generation
// @Produce      json
// @Param        kind    query     string  false  "Filter by kind"
// @Param        status  query     string  false  "Filter by status"
// @Success      200  {object}  inbound.SessionListOutput
// @Failure      422  {object}  apperrors.ErrorResponse
// @Router       /sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	filter := &session.Filter{}
	if k := c.Query("kind"); k != "" {
		kind, err := generation.ParseKind(k)
		if err != nil {
			h.handleError(c, err)
			return
		}
		filter.Kind = &kind
	}
	if s := c.Query("status"); s != "" {
		status, ok := parseStatus(s)
		if !ok {
			response.Error(c, apperrors.Validation("INVALID_STATUS", fmt.Sprintf("unknown status %q", s)).
				WithDetails(map[string]any{"allowed": knownStatuses}))
			return
		}
		filter.Status = &status
	}

	snaps, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, inbound.SessionListOutput{Sessions: snaps, Total: len(snaps)})
}

// OpenSession godoc
// @Summary      Open a generation session
// @Tags         generation
// @Accept       json
// @Produce      json
// @Param        body  body      inbound.OpenSessionInput  true  "Session kind"
// @Success      201   {object}  generation.Snapshot
// @Failure      400   {object}  apperrors.ErrorResponse
// @Failure      422   {object}  apperrors.ErrorResponse
// @Failure      503   {object}  apperrors.ErrorResponse
// @Router       /sessions [post]
func (h *Handler) OpenSession(c *gin.Context) {
	var input inbound.OpenSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	kind, err := generation.ParseKind(input.Kind)
	if err != nil {
		h.handleError(c, err)
		return
	}

	snap, err := h.sessions.Open(c.Request.Context(), kind)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// GetSession godoc
// @Summary      Get the current status of a session
// @Tags         generation
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Description  Falls back to the last archived snapshot once the session is closed or expired.
// @Success      200  {object}  generation.Snapshot
// @Failure      404  {object}  apperrors.ErrorResponse
// @Router       /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	snap, err := h.sessions.Status(c.Request.Context(), id)
	if errors.Is(err, session.ErrSessionNotFound) {
		if last := h.archived(c.Request.Context(), id); last != nil {
			c.Header(HeaderArchived, "true")
			c.JSON(http.StatusOK, last)
			return
		}
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CloseSession godoc
// @Summary      Close a session
// @Tags         generation
// @Param        id   path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  apperrors.ErrorResponse
// @Router       /sessions/{id} [delete]
func (h *Handler) CloseSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.sessions.Close(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit godoc
// @Summary      Submit a generation request
// @Description  Accepts JSON with base64 images, or multipart with prompt, options[name] and images fields.
// @Tags         generation
// @Accept       json,mpfd
// @Produce      json
// @Param        id    path      string               true  "Session ID"
// @Param        body  body      inbound.SubmitInput  false "JSON submission"
// @Success      202   {object}  inbound.SubmitOutput
// @Failure      409   {object}  apperrors.ErrorResponse
// @Failure      413   {object}  apperrors.ErrorResponse
// @Failure      422   {object}  apperrors.ErrorResponse
// @Router       /sessions/{id}/generations [post]
func (h *Handler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	current, err := h.sessions.Status(ctx, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var req *generation.Request
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		req, err = h.multipartRequest(c)
	} else {
		req, err = h.jsonRequest(c)
	}
	if err != nil {
		h.recordSubmission(current.Kind, err)
		h.handleError(c, err)
		return
	}

	err = h.sessions.Submit(ctx, id, req)
	h.recordSubmission(current.Kind, err)
	if err != nil {
		h.handleError(c, err)
		return
	}

	snap, err := h.sessions.Status(ctx, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, inbound.SubmitOutput{
		Session: snap,
		Uploads: h.archive(ctx, id, req.Images),
	})
}

// Cancel godoc
// @Summary      Cancel the running generation
// @Tags         generation
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  generation.Snapshot
// @Failure      404  {object}  apperrors.ErrorResponse
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /sessions/{id}/generations [delete]
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.sessions.Cancel(ctx, id); err != nil {
		h.handleError(c, err)
		return
	}

	snap, err := h.sessions.Status(ctx, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Describe godoc
// @Summary      Extract a description from an image
// @Tags         generation
// @Accept       mpfd
// @Produce      json
// @Param        id     path      string  true  "Session ID"
// @Param        image  formData  file    true  "Image"
// @Success      200    {object}  inbound.DescriptionOutput
// @Failure      409    {object}  apperrors.ErrorResponse
// @Failure      422    {object}  apperrors.ErrorResponse
// @Failure      499    {object}  apperrors.ErrorResponse
// @Router       /sessions/{id}/descriptions [post]
func (h *Handler) Describe(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("image")
	if err != nil {
		if tooLarge(err) {
			h.handleError(c, err)
			return
		}
		h.handleError(c, &generation.Error{Kind: generation.ErrorMissingImage, Message: "image field is required"})
		return
	}

	file, err := readUpload(fh)
	if err != nil {
		h.handleError(c, err)
		return
	}
	img, err := generation.AcceptImage(file)
	if err != nil {
		h.handleError(c, err)
		return
	}

	text, err := h.sessions.Describe(c.Request.Context(), id, img)
	h.recordDescription(err)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, inbound.DescriptionOutput{Description: text})
}

// Download godoc
// @Summary      Get the download descriptor of a result
// @Tags         generation
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  inbound.DownloadOutput
// @Failure      404  {object}  apperrors.ErrorResponse
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /sessions/{id}/download [get]
func (h *Handler) Download(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	snap, err := h.sessions.Status(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if snap.Status != generation.StatusSucceeded || snap.Result == nil {
		response.Error(c, apperrors.Conflict("NO_RESULT", fmt.Sprintf("session is %s and has no result", snap.Status)))
		return
	}

	c.JSON(http.StatusOK, inbound.DownloadOutput{
		URL:       snap.Result.Reference,
		Filename:  snap.Result.DownloadName(),
		MediaKind: snap.Result.Media,
		MIMEType:  snap.Result.MIMEType,
	})
}

func (h *Handler) jsonRequest(c *gin.Context) (*generation.Request, error) {
	var input inbound.SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if tooLarge(err) {
			return nil, err
		}
		return nil, apperrors.BadRequest(err.Error())
	}

	kind, err := requestKind(input.Kind)
	if err != nil {
		return nil, err
	}
	req := &generation.Request{
		Kind:    kind,
		Prompt:  input.Prompt,
		Options: input.Options,
	}
	for i, in := range input.Images {
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		declared := in.MediaType
		if declared == "" && len(in.Data) > 0 {
			declared = mimetype.Detect(in.Data).String()
		}
		img, err := generation.AcceptImage(generation.File{Name: name, DeclaredType: declared, Data: in.Data})
		if err != nil {
			return nil, err
		}
		req.Images = append(req.Images, img)
	}
	return req, nil
}

func (h *Handler) multipartRequest(c *gin.Context) (*generation.Request, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge(err) {
			return nil, err
		}
		return nil, apperrors.BadRequest(err.Error())
	}

	kind, err := requestKind(c.PostForm("kind"))
	if err != nil {
		return nil, err
	}
	req := &generation.Request{
		Kind:    kind,
		Prompt:  c.PostForm("prompt"),
		Options: c.PostFormMap("options"),
	}
	for _, fh := range form.File["images"] {
		file, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		img, err := generation.AcceptImage(file)
		if err != nil {
			return nil, err
		}
		req.Images = append(req.Images, img)
	}
	return req, nil
}

// archived returns the last published snapshot of a session, or nil.
func (h *Handler) archived(ctx context.Context, id uuid.UUID) *generation.Snapshot {
	if h.statuses == nil {
		return nil
	}
	snap, err := h.statuses.Last(ctx, id)
	if err != nil {
		h.logger.Warn("read archived snapshot",
			zap.String("session_id", id.String()),
			zap.Error(err),
		)
		return nil
	}
	return snap
}

// requestKind parses the optional kind of a submission. Empty means the
// session's own kind.
func requestKind(raw string) (generation.Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return generation.ParseKind(raw)
}

// archive stores accepted images. Failures are logged and skipped.
func (h *Handler) archive(ctx context.Context, id uuid.UUID, images []*generation.ImagePayload) []inbound.UploadOutput {
	if h.uploads == nil || len(images) == 0 {
		return nil
	}

	out := make([]inbound.UploadOutput, 0, len(images))
	for _, img := range images {
		stored, err := h.uploads.Save(ctx, id, img)
		if err != nil {
			h.logger.Warn("archive upload",
				zap.String("session_id", id.String()),
				zap.String("name", img.Name),
				zap.Error(err),
			)
			continue
		}
		out = append(out, inbound.UploadOutput{
			Name:       img.Name,
			Key:        stored.Key,
			PreviewURL: stored.PreviewURL,
			Size:       stored.Size,
		})
	}
	return out
}

func (h *Handler) recordSubmission(kind generation.Kind, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
		if k, ok := generation.KindOf(err); ok {
			outcome = strings.ToLower(string(k))
		}
	}
	h.metrics.RecordSubmission(kind.String(), outcome)
}

func (h *Handler) recordDescription(err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, generation.ErrSuperseded):
		outcome = "superseded"
	case errors.Is(err, generation.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
	default:
		outcome = "error"
	}
	h.metrics.RecordDescription(outcome)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.NotFound("session"))
		return uuid.Nil, false
	}
	return id, true
}

func parseStatus(s string) (generation.Status, bool) {
	status := generation.Status(strings.ToLower(s))
	for _, known := range knownStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

// readUpload reads a multipart file. The part's declared content type wins;
// the bytes are sniffed only when none was declared.
func readUpload(fh *multipart.FileHeader) (generation.File, error) {
	f, err := fh.Open()
	if err != nil {
		return generation.File{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return generation.File{}, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}

	declared := fh.Header.Get("Content-Type")
	if declared == "" {
		declared = mimetype.Detect(data).String()
	}
	return generation.File{Name: fh.Filename, DeclaredType: declared, Data: data}, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
