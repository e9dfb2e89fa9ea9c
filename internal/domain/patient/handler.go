package patient

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	lookup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	lookup.GET("/patients/search", h.SearchPatients)

	records := api.Group("", auth.RequireRole(auth.RolePharmacist))
	records.GET("/patients", h.ListPatients)
	records.GET("/patients/:id", h.GetPatient)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	results, err := h.svc.Search(c.Request().Context(), actor, c.QueryParam("q"))
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) ListPatients(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), actor, c.QueryParam("search"), pg.Limit(), pg.Offset())
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetPatient(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}
