package staff

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RolePharmacist))
	read.GET("/staff/doctors", h.ListDoctors)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin))
	write.POST("/staff", h.CreateUser)
}

func (h *Handler) CreateUser(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.CreateUser(c.Request().Context(), actor, in)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// ListDoctors returns doctor accounts, plus the distinct names of doctors
// with prescriptions on file for the queue filter.
func (h *Handler) ListDoctors(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	doctors, err := h.svc.ListDoctors(ctx, actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	names, err := h.svc.DoctorFilterNames(ctx, actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	if doctors == nil {
		doctors = []*User{}
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctors":        doctors,
		"unique_doctors": names,
	})
}
