package items

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vereinsportal-backend/internal/platform/auth"
	"vereinsportal-backend/internal/platform/metrics"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	manage := auth.RequireRole(auth.RoleInventar, auth.RoleVorstand, auth.RoleAdmin)

	r.GET("/inventory/items", h.ListItems)
	r.GET("/inventory/items/:item_id", h.GetItem)
	r.GET("/inventory/items/:item_id/history", h.ListHistory)

	r.POST("/inventory/items", manage, h.CreateItem)
	r.PATCH("/inventory/items/:item_id", manage, h.UpdateItem)
	r.DELETE("/inventory/items/:item_id", manage, h.DeleteItem)
	r.POST("/inventory/items/:item_id/adjust", manage, h.AdjustStock)
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CreateItem(c.Request.Context(), req, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetItem(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	res, err := h.svc.GetItem(c.Request.Context(), id)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListItems(c *gin.Context) {
	f := ItemFilter{}
	if v := c.Query("name"); v != "" {
		f.Name = &v
	}
	if v := c.Query("low_stock"); v == "true" || v == "1" {
		f.LowStock = true
	}
	if v := c.Query("include_deleted"); v == "true" || v == "1" {
		f.IncludeDeleted = true
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "asc"),
	}

	res, err := h.svc.ListItems(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.UpdateItem(c.Request.Context(), id, req, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	if err := h.svc.DeleteItem(c.Request.Context(), id, c.GetString(auth.CtxUserIDKey)); err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AdjustStock(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.AdjustStock(c.Request.Context(), id, req, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	metrics.StockAdjustmentsTotal.Inc()
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListHistory(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
	res, err := h.svc.ListHistory(c.Request.Context(), id, p)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid "+name))
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
