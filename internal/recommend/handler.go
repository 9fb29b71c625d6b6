package recommend

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"foodassist-backend/internal/engine"
	"foodassist-backend/internal/shared/server/respond"
	"foodassist-backend/internal/shared/storage/object"
)

const maxPhotoSize = 10 << 20 // 10MB

const photoCategory = "photos"

// Handler wires HTTP handlers to the orchestrator.
type Handler struct {
	Orch   *Orchestrator
	Engine engine.Engine
	Photos object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(orch *Orchestrator, eng engine.Engine, photos object.ObjectStore) *Handler {
	return &Handler{Orch: orch, Engine: eng, Photos: photos}
}

// RegisterRoutes attaches recommendation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recommendations", h.create)
	rg.POST("/recommendations/quick", h.quick)
	rg.GET("/recommendations", h.list)
	rg.DELETE("/recommendations", h.clear)
	rg.POST("/recommendations/:id/feedback", h.feedback)
	rg.GET("/state", h.state)
	rg.GET("/model", h.model)
}

type createRequest struct {
	Query string `json:"query"`
}

func (h *Handler) create(c *gin.Context) {
	req := Request{}

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoSize)
		req.Query = strings.TrimSpace(c.PostForm("query"))

		fileHeader, err := c.FormFile("photo")
		if err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read photo", nil)
				return
			}
			defer file.Close()

			data, err := io.ReadAll(file)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read photo", nil)
				return
			}
			req.Image = data

			if h.Photos != nil {
				key, _, _, err := h.Photos.Save(c.Request.Context(), photoCategory, fileHeader.Filename, bytes.NewReader(data))
				if err != nil {
					respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store photo", nil)
					return
				}
				req.ImagePath = &key
			}
		}
	} else {
		var body createRequest
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
		req.Query = strings.TrimSpace(body.Query)
	}

	rec, err := h.Orch.RequestRecommendation(c.Request.Context(), req)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	h.annotate(c, rec)
	respond.JSON(c, http.StatusCreated, rec)
}

func (h *Handler) quick(c *gin.Context) {
	rec, err := h.Orch.QuickRecommend(c.Request.Context())
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	h.annotate(c, rec)
	respond.JSON(c, http.StatusCreated, rec)
}

func (h *Handler) list(c *gin.Context) {
	respond.JSON(c, http.StatusOK, h.Orch.Recommendations())
}

func (h *Handler) clear(c *gin.Context) {
	h.Orch.ClearResults()
	respond.JSON(c, http.StatusOK, gin.H{"cleared": true})
}

type feedbackRequest struct {
	Liked *bool `json:"liked"`
}

func (h *Handler) feedback(c *gin.Context) {
	recID := c.Param("id")
	if recID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "recommendation id is required", nil)
		return
	}

	var body feedbackRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Liked == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "liked is required", nil)
		return
	}

	var target *Recommendation
	for _, rec := range h.Orch.Recommendations() {
		if rec.ID == recID {
			r := rec
			target = &r
			break
		}
	}
	if target == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "recommendation not found", nil)
		return
	}

	if err := h.Orch.AcceptFeedback(c.Request.Context(), *target, *body.Liked); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record feedback", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"id":    recID,
		"liked": *body.Liked,
	})
}

func (h *Handler) state(c *gin.Context) {
	state, msg := h.Orch.State()
	respond.JSON(c, http.StatusOK, gin.H{
		"state":   state.String(),
		"message": msg,
	})
}

func (h *Handler) model(c *gin.Context) {
	resp := gin.H{
		"available": h.Engine.ModelAvailable(),
	}
	if m, ok := h.Engine.(*engine.Model); ok {
		resp["path"] = m.ModelPath()
		resp["sizeMB"] = engine.ModelSizeMB()
		resp["downloadUrl"] = engine.ModelDownloadURL
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) annotate(c *gin.Context, rec Recommendation) {
	c.Set("recommendationId", rec.ID)
	state, _ := h.Orch.State()
	c.Set("pipelineState", state.String())
}

func (h *Handler) respondPipelineError(c *gin.Context, err error) {
	state, _ := h.Orch.State()
	c.Set("pipelineState", state.String())

	switch {
	case errors.Is(err, ErrNotReady):
		respond.Error(c, http.StatusConflict, "not_ready", "engine is not ready for requests", nil)
	case errors.Is(err, ErrInFlight):
		respond.Error(c, http.StatusConflict, "in_flight", "a recommendation request is already running", nil)
	case errors.Is(err, ErrCancelled):
		respond.Error(c, http.StatusConflict, "cancelled", "the request was cancelled", nil)
	default:
		respond.Error(c, http.StatusBadGateway, "inference_failed", err.Error(), nil)
	}
}
