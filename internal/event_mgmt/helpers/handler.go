package helpers

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
	manage := auth.RequireRole(auth.RoleVorstand, auth.RoleAdmin)

	r.GET("/events/helper-types", h.ListHelperTypes)
	r.GET("/events/:event_id/slots", h.ListSlots)
	r.POST("/events/:event_id/slots", manage, h.CreateSlot)
	r.POST("/events/:event_id/slots/:slot_id/signup", h.Signup)
	r.DELETE("/events/signups/:signup_ulid", h.Cancel)
	r.POST("/events/signups/:signup_ulid/promote", manage, h.Promote)
}

func (h *Handler) ListHelperTypes(c *gin.Context) {
	includeDisabled := c.Query("all") == "1" || c.Query("all") == "true"
	res, err := h.svc.ListHelperTypes(c.Request.Context(), includeDisabled)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateSlot(c *gin.Context) {
	eventID, ok := paramID(c, "event_id")
	if !ok {
		return
	}
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CreateSlot(c.Request.Context(), eventID, req)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListSlots(c *gin.Context) {
	eventID, ok := paramID(c, "event_id")
	if !ok {
		return
	}
	res, err := h.svc.ListSlots(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Signup(c *gin.Context) {
	eventID, ok := paramID(c, "event_id")
	if !ok {
		return
	}
	slotID, ok := paramID(c, "slot_id")
	if !ok {
		return
	}

	res, err := h.svc.Signup(c.Request.Context(), eventID, slotID, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	metrics.SignupsTotal.WithLabelValues(res.Status).Inc()
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Cancel(c *gin.Context) {
	role := c.GetString(auth.CtxRoleKey)
	isManager := role == auth.RoleVorstand || role == auth.RoleAdmin

	err := h.svc.Cancel(c.Request.Context(), c.Param("signup_ulid"), c.GetString(auth.CtxUserIDKey), isManager)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Promote(c *gin.Context) {
	res, err := h.svc.Promote(c.Request.Context(), c.Param("signup_ulid"))
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
