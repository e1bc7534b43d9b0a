package handler

import (
	"github.com/gin-gonic/gin"
	partnerapp "github.com/pharmacy/backend/internal/application/partner"
	tradeapp "github.com/pharmacy/backend/internal/application/trade"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
)

// SupplierHandler handles suppliers and the payments made to them
type SupplierHandler struct {
	BaseHandler
	suppliers   *partnerapp.SupplierService
	coordinator *tradeapp.Coordinator
	idem        *middleware.Idempotency
}

// NewSupplierHandler creates a new SupplierHandler. idem may be nil.
func NewSupplierHandler(suppliers *partnerapp.SupplierService, coordinator *tradeapp.Coordinator, idem *middleware.Idempotency) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers, coordinator: coordinator, idem: idem}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/suppliers")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/payments", guarded(h.idem, "paymentId"), h.RecordPayment)
	g.GET("/:id/payments", h.ListPayments)
}

// Create handles POST /suppliers
func (h *SupplierHandler) Create(c *gin.Context) {
	var req partnerapp.CreateSupplierRequest
	if !h.BindJSON(c, &req) {
		return
	}
	supplier, err := h.suppliers.CreateSupplier(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, supplier)
}

// Get handles GET /suppliers/:id
func (h *SupplierHandler) Get(c *gin.Context) {
	supplier, err := h.suppliers.GetSupplier(c.Request.Context(), branch(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}

// RecordPayment handles POST /suppliers/:id/payments. The supplier comes from the path;
// a body naming a different supplier is rejected.
func (h *SupplierHandler) RecordPayment(c *gin.Context) {
	var req tradeapp.SupplierPaymentRequest
	if !h.DecodeJSON(c, &req) {
		return
	}
	supplierID := c.Param("id")
	if req.SupplierID != "" && req.SupplierID != supplierID {
		h.HandleError(c, shared.NewValidationError("SUPPLIER_MISMATCH", "Body supplierId does not match the path").
			WithDetail("path", supplierID).
			WithDetail("body", req.SupplierID))
		return
	}
	req.SupplierID = supplierID

	payment, err := h.coordinator.RecordSupplierPayment(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// ListPayments handles GET /suppliers/:id/payments
func (h *SupplierHandler) ListPayments(c *gin.Context) {
	var filter partnerapp.PaymentListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	payments, err := h.suppliers.ListPayments(c.Request.Context(), branch(c), c.Param("id"), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}
