package report

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
	g := api.Group("/admin/reports", auth.RequireRole(auth.RoleAdmin))
	g.GET("/overview", h.Overview)
	g.GET("/revenue", h.Revenue)
	g.GET("/top-medicines", h.TopMedicines)
	g.GET("/low-stock", h.LowStock)
	g.GET("/recent", h.Recent)
}

func (h *Handler) Overview(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	o, err := h.svc.Overview(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Revenue(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	months, err := h.svc.MonthlyRevenue(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, months)
}

func (h *Handler) TopMedicines(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	top, err := h.svc.TopMedicines(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, top)
}

func (h *Handler) LowStock(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	meds, err := h.svc.LowStock(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, meds)
}

func (h *Handler) Recent(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	recent, err := h.svc.RecentPrescriptions(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, recent)
}
