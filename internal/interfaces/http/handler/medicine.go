package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmacy/backend/internal/application/catalog"
)

// MedicineHandler handles a branch's medicines and their batches
type MedicineHandler struct {
	BaseHandler
	medicines *catalog.MedicineService
}

// NewMedicineHandler creates a new MedicineHandler
func NewMedicineHandler(medicines *catalog.MedicineService) *MedicineHandler {
	return &MedicineHandler{medicines: medicines}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *MedicineHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/medicines")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.GET("/:id/batches", h.ListBatches)
	g.GET("/:id/stock", h.Stock)
	g.POST("/:id/deactivate", h.Deactivate)
	g.DELETE("/:id", h.Delete)
}

// Create handles POST /medicines
func (h *MedicineHandler) Create(c *gin.Context) {
	var req catalog.CreateMedicineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	med, err := h.medicines.CreateMedicine(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, med)
}

// Get handles GET /medicines/:id
func (h *MedicineHandler) Get(c *gin.Context) {
	med, err := h.medicines.GetMedicine(c.Request.Context(), branch(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, med)
}

// ListBatches handles GET /medicines/:id/batches?includeEmpty=true
func (h *MedicineHandler) ListBatches(c *gin.Context) {
	var filter catalog.BatchFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	batches, err := h.medicines.ListBatches(c.Request.Context(), branch(c), c.Param("id"), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// Stock handles GET /medicines/:id/stock, comparing the aggregate with its batches
func (h *MedicineHandler) Stock(c *gin.Context) {
	report, err := h.medicines.ReconcileStock(c.Request.Context(), branch(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Deactivate handles POST /medicines/:id/deactivate
func (h *MedicineHandler) Deactivate(c *gin.Context) {
	med, err := h.medicines.DeactivateMedicine(c.Request.Context(), branch(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, med)
}

// Delete handles DELETE /medicines/:id, removing its batches too
func (h *MedicineHandler) Delete(c *gin.Context) {
	if err := h.medicines.DeleteMedicine(c.Request.Context(), branch(c), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
