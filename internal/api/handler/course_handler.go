package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyon/billing/internal/core/ports"
)

// CourseHandler serves the course catalog and the pay endpoint.
type CourseHandler struct {
	service ports.CourseService
}

func NewCourseHandler(service ports.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// List handles GET /api/v1/courses.
func (h *CourseHandler) List(c echo.Context) error {
	courses, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]courseResponse, 0, len(courses))
	for _, course := range courses {
		resp = append(resp, toCourseResponse(course))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/v1/courses/:code.
func (h *CourseHandler) Get(c echo.Context) error {
	course, err := h.service.Get(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCourseResponse(course))
}

// Create handles POST /api/v1/courses. Requires ROLE_SUPER_ADMIN.
func (h *CourseHandler) Create(c echo.Context) error {
	var req courseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if _, err := h.service.Create(c.Request().Context(), toCourseInput(req)); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, successResponse{Success: true})
}

// Update handles PUT /api/v1/courses/:code. Requires ROLE_SUPER_ADMIN.
func (h *CourseHandler) Update(c echo.Context) error {
	var req courseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if _, err := h.service.Update(c.Request().Context(), c.Param("code"), toCourseInput(req)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// Pay handles POST /api/v1/courses/:code/pay.
//
// An Idempotency-Key header makes retries of the same request return the
// original payment instead of being rejected as a repeat purchase.
func (h *CourseHandler) Pay(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	res, err := h.service.Pay(c.Request().Context(), ports.PayInput{
		AccountID:      accountID,
		Code:           c.Param("code"),
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}

	if res.Replayed {
		c.Response().Header().Set("Idempotent-Replayed", "true")
	}
	return c.JSON(http.StatusCreated, payResponse{
		Success:    true,
		CourseType: string(res.CourseType),
		ExpiresAt:  res.ExpiresAt,
	})
}
