package medicine

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

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
	// Read endpoints – doctor, pharmacist
	readGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePharmacist))
	readGroup.GET("/medicines", h.ListMedicines)
	readGroup.GET("/medicines/:id", h.GetMedicine)

	// Prescribing form lookups – doctor
	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.GET("/medicines/search", h.SearchMedicines)
	doctorGroup.GET("/medicines/available", h.ListAvailable)

	// Write endpoints – admin
	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/medicines", h.CreateMedicine)
	writeGroup.PUT("/medicines/:id", h.UpdateMedicine)
	writeGroup.DELETE("/medicines/:id", h.DeleteMedicine)
	writeGroup.POST("/medicines/:id/restore", h.RestoreMedicine)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parsePrice(c echo.Context, name string) (decimal.NullDecimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return decimal.NewNullDecimal(d), nil
}

func (h *Handler) CreateMedicine(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedicine(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMedicines(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	f := ListFilter{
		Search:     c.QueryParam("search"),
		Type:       c.QueryParam("type"),
		LowStock:   c.QueryParam("low_stock") == "true",
		OutOfStock: c.QueryParam("out_of_stock") == "true",
		Trashed:    Trashed(c.QueryParam("trashed")),
	}
	if f.MinPrice, err = parsePrice(c, "price_from"); err != nil {
		return err
	}
	if f.MaxPrice, err = parsePrice(c, "price_to"); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), actor, f, pg.Limit(), pg.Offset())
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	if items == nil {
		items = []*Medicine{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) SearchMedicines(c echo.Context) error {
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

func (h *Handler) ListAvailable(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	results, err := h.svc.ListAvailable(c.Request().Context(), actor)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) UpdateMedicine(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedicine(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RestoreMedicine(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Restore(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
