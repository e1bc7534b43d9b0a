package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/application/catalog"
)

// TaxProfileHandler handles organization tax profiles
type TaxProfileHandler struct {
	BaseHandler
	profiles *catalog.TaxProfileService
}

// NewTaxProfileHandler creates a new TaxProfileHandler
func NewTaxProfileHandler(profiles *catalog.TaxProfileService) *TaxProfileHandler {
	return &TaxProfileHandler{profiles: profiles}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *TaxProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tax-profiles", h.Create)
	rg.GET("/tax-profiles/:id", h.Get)
}

// Create handles POST /tax-profiles
func (h *TaxProfileHandler) Create(c *gin.Context) {
	var req catalog.CreateTaxProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}
	profile, err := h.profiles.CreateTaxProfile(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, profile)
}

// Get handles GET /tax-profiles/:id
func (h *TaxProfileHandler) Get(c *gin.Context) {
	profile, err := h.profiles.GetTaxProfile(c.Request.Context(), branch(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}
