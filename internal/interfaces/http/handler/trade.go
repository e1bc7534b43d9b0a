package handler

import (
	"github.com/gin-gonic/gin"
	tradeapp "github.com/pharmacy/backend/internal/application/trade"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
)

// TradeHandler exposes the stock-moving operations: purchases, sales and their returns
type TradeHandler struct {
	BaseHandler
	coordinator *tradeapp.Coordinator
	idem        *middleware.Idempotency
}

// NewTradeHandler creates a new TradeHandler. idem may be nil.
func NewTradeHandler(coordinator *tradeapp.Coordinator, idem *middleware.Idempotency) *TradeHandler {
	return &TradeHandler{coordinator: coordinator, idem: idem}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *TradeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/purchases", guarded(h.idem, "purchaseId"), h.ReceivePurchase)
	rg.POST("/sales", guarded(h.idem, "saleId"), h.RecordSale)
	rg.POST("/purchase-returns", guarded(h.idem, "returnId"), h.ReturnPurchase)
	rg.POST("/sales-returns", guarded(h.idem, "returnId"), h.ReturnSale)
}

// ReceivePurchase handles POST /purchases
func (h *TradeHandler) ReceivePurchase(c *gin.Context) {
	var req tradeapp.PurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	purchase, err := h.coordinator.ReceivePurchase(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, purchase)
}

// RecordSale handles POST /sales
func (h *TradeHandler) RecordSale(c *gin.Context) {
	var req tradeapp.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	sale, err := h.coordinator.RecordSale(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// ReturnPurchase handles POST /purchase-returns
func (h *TradeHandler) ReturnPurchase(c *gin.Context) {
	var req tradeapp.PurchaseReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ret, err := h.coordinator.ReturnPurchase(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ret)
}

// ReturnSale handles POST /sales-returns
func (h *TradeHandler) ReturnSale(c *gin.Context) {
	var req tradeapp.SalesReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ret, err := h.coordinator.ReturnSale(c.Request.Context(), branch(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ret)
}
