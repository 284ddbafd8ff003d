package rentals

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

	r.POST("/inventory/rentals", manage, h.Checkout)
	r.POST("/inventory/rentals/:rental_key/checkin", manage, h.Checkin)
	r.GET("/inventory/rentals", h.ListRentals)
	r.GET("/inventory/rentals/:rental_key", h.GetRental)
}

func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.Checkout(c.Request.Context(), req, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	metrics.CheckoutsTotal.Inc()
	c.Header("Location", "/inventory/rentals/"+res.RentalULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Checkin(c *gin.Context) {
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.Checkin(c.Request.Context(), c.Param("rental_key"), req, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	metrics.CheckinsTotal.Inc()
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetRental(c *gin.Context) {
	res, err := h.svc.GetRental(c.Request.Context(), c.Param("rental_key"))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListRentals(c *gin.Context) {
	f := RentalFilter{}
	if v := c.Query("user_id"); v != "" {
		f.UserID = &v
	}
	if v := c.Query("item_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.ItemID = &id
		}
	}
	if v := c.Query("open"); v == "true" || v == "1" {
		f.OpenOnly = true
	}
	if v := c.Query("overdue"); v == "true" || v == "1" {
		f.OverdueOnly = true
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}

	res, err := h.svc.ListRentals(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

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
