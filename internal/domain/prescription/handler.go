package prescription

import (
	"errors"
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
	// Prescribing – doctor
	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.POST("/prescriptions", h.CreatePrescription)

	// Detail – doctor, pharmacist
	readGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePharmacist))
	readGroup.GET("/prescriptions/:id", h.GetPrescription)

	// Fulfillment – pharmacist
	pharmGroup := api.Group("", auth.RequireRole(auth.RolePharmacist))
	pharmGroup.GET("/prescriptions", h.ListPrescriptions)
	pharmGroup.PATCH("/prescriptions/:id/status", h.UpdateStatus)
	pharmGroup.POST("/prescriptions/:id/payment", h.ProcessPayment)
	pharmGroup.GET("/prescriptions/:id/invoice-data", h.GetInvoiceData)
	pharmGroup.GET("/invoices", h.ListInvoices)
	pharmGroup.GET("/invoices/:prescriptionId", h.GetInvoice)
	pharmGroup.GET("/invoices/:prescriptionId/qr", h.GetInvoiceQR)
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.CreatePrescription(c.Request().Context(), actor, in)
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			// The submitted form is echoed back so the client can correct it.
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"message":     stockErr.Error(),
				"medicine_id": stockErr.MedicineID,
				"available":   stockErr.Available,
				"input":       in,
			})
		}
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetPrescription(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

type queueResponse struct {
	*pagination.Response
	UniqueDoctors []string          `json:"unique_doctors"`
	Stats         QueueStats        `json:"stats"`
	Filters       map[string]string `json:"filters"`
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	f := ListFilter{
		Search:    c.QueryParam("search"),
		Status:    c.QueryParam("status"),
		DateRange: c.QueryParam("date_range"),
		Doctor:    c.QueryParam("doctor"),
	}
	pg := pagination.FromContextAllowed(c, PerPageOptions, DefaultPerPage)
	q, err := h.svc.ListPrescriptions(c.Request().Context(), actor, f, pg.Limit(), pg.Offset())
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, queueResponse{
		Response:      pagination.NewResponse(q.Rows, q.Total, pg),
		UniqueDoctors: q.UniqueDoctors,
		Stats:         q.Stats,
		Filters: map[string]string{
			"search":     f.Search,
			"status":     orAll(f.Status),
			"date_range": orAll(f.DateRange),
			"doctor":     orAll(f.Doctor),
		},
	})
}

func orAll(v string) string {
	if v == "" {
		return FilterAll
	}
	return v
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.UpdateStatus(c.Request().Context(), actor, id, in)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ProcessPayment(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.ProcessPayment(c.Request().Context(), actor, id, in)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetInvoiceData(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	data, err := h.svc.GetInvoiceData(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInvoices(c.Request().Context(), actor, pg.Limit(), pg.Offset())
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	if items == nil {
		items = []*Invoice{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetInvoice(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "prescriptionId")
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) GetInvoiceQR(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "prescriptionId")
	if err != nil {
		return err
	}
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size > 1024 {
		size = 1024
	}
	png, err := h.svc.InvoiceQR(c.Request().Context(), actor, id, size)
	if err != nil {
		return apperr.HTTPError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
