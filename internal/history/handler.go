package history

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"foodassist-backend/internal/shared/server/respond"
)

const defaultHistoryLimit = 20

// Handler wires HTTP handlers to the history store.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches history routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.list)
	rg.GET("/history/count", h.count)
}

func (h *Handler) list(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}

	var (
		records []Record
		err     error
	)
	if strings.EqualFold(c.Query("liked"), "true") {
		records, err = h.Repo.Liked(c.Request.Context(), limit)
	} else {
		records, err = h.Repo.Recent(c.Request.Context(), limit)
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list history", nil)
		return
	}

	respond.JSON(c, http.StatusOK, records)
}

func (h *Handler) count(c *gin.Context) {
	count, err := h.Repo.Count(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to count history", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"count": count})
}
