package prefs

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"foodassist-backend/internal/shared/server/respond"
)

// ProfileUpdater applies a profile mutation through the session so the
// in-memory copy stays in sync with the store.
type ProfileUpdater interface {
	UpdatePreferences(ctx context.Context, mutate func(Profile) Profile) (Profile, error)
}

// Handler wires HTTP handlers to the preference store.
type Handler struct {
	Repo    Repo
	Updater ProfileUpdater
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo, updater ProfileUpdater) *Handler {
	return &Handler{Repo: repo, Updater: updater}
}

// RegisterRoutes attaches preference routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/preferences", h.get)
	rg.PUT("/preferences", h.put)
}

func (h *Handler) get(c *gin.Context) {
	profile, err := h.Repo.Get(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.JSON(c, http.StatusOK, DefaultProfile())
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load preferences", nil)
		return
	}
	respond.JSON(c, http.StatusOK, profile)
}

type putRequest struct {
	FavoriteCuisines    []string `json:"favoriteCuisines"`
	DislikedFoods       []string `json:"dislikedFoods"`
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	SpiceLevel          int      `json:"spiceLevel"`
	PortionSize         string   `json:"portionSize"`
}

func (h *Handler) put(c *gin.Context) {
	var body putRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	if body.SpiceLevel < SpiceNone || body.SpiceLevel > SpiceExtraHot {
		respond.Error(c, http.StatusBadRequest, "validation_error", "spiceLevel must be between 1 and 5", []map[string]string{
			{"field": "spiceLevel", "issue": "out_of_range"},
		})
		return
	}

	portion := strings.TrimSpace(body.PortionSize)
	switch portion {
	case PortionSmall, PortionMedium, PortionLarge:
	case "":
		portion = PortionMedium
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "portionSize must be small, medium or large", []map[string]string{
			{"field": "portionSize", "issue": "invalid_value"},
		})
		return
	}

	updated, err := h.Updater.UpdatePreferences(c.Request.Context(), func(Profile) Profile {
		return Profile{
			FavoriteCuisines:    trimAll(body.FavoriteCuisines),
			DislikedFoods:       trimAll(body.DislikedFoods),
			DietaryRestrictions: trimAll(body.DietaryRestrictions),
			SpiceLevel:          body.SpiceLevel,
			PortionSize:         portion,
		}
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save preferences", nil)
		return
	}

	respond.JSON(c, http.StatusOK, updated)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
