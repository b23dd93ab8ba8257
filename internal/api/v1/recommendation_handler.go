package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"qualityhair-hub/internal/api/response"
	"qualityhair-hub/internal/recommend"
)

type RecommendationHandler struct{}

type recommendationRequest struct {
	VolumeScore *float64 `json:"volume_score"`
	PresetID    string   `json:"preset_id"`
	UsedPreset  bool     `json:"used_preset"`
	ProductLine string   `json:"product_line"`
}

func NewRecommendationHandler() *RecommendationHandler {
	return &RecommendationHandler{}
}

func RegisterRecommendationRoutes(group *gin.RouterGroup) {
	handler := NewRecommendationHandler()
	analysis := group.Group("/analysis")
	analysis.POST("/recommendation", handler.Recommend)
	analysis.GET("/presets", handler.Presets)
}

// Recommend resolves the volume score from a preset id when one is given,
// otherwise from the explicit score, falling back to the capture default.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	score := recommend.CaptureDefaultScore
	usedPreset := req.UsedPreset

	if presetID := strings.TrimSpace(req.PresetID); presetID != "" {
		preset, ok := recommend.FindPreset(presetID)
		if !ok {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "unknown preset")
			return
		}
		score = preset.VolumeScore
		usedPreset = true
	} else if req.VolumeScore != nil {
		score = *req.VolumeScore
	}

	table := recommend.Table(req.ProductLine)
	response.Success(c, table.Recommend(score, usedPreset))
}

func (h *RecommendationHandler) Presets(c *gin.Context) {
	response.Success(c, gin.H{
		"presets":               recommend.Presets(),
		"capture_default_score": recommend.CaptureDefaultScore,
	})
}
