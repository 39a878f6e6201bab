package labresults

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opencare/opencare/internal/platform/auth"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	roles := auth.RequireRole("admin", "physician", "nurse", "lab_tech")

	api.POST("/lab-results/extract", h.Extract, roles)
	fhirGroup.POST("/Observation/$extract", h.ExtractFHIR, roles)
}

// Extract handles POST /api/v1/lab-results/extract.
func (h *Handler) Extract(c echo.Context) error {
	resp, err := h.extract(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// ExtractFHIR handles POST /fhir/Observation/$extract and answers with a
// collection Bundle of preliminary Observations.
func (h *Handler) ExtractFHIR(c echo.Context) error {
	resp, err := h.extract(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToObservationBundle(resp.ExtractedValues, h.now()))
}

func (h *Handler) extract(c echo.Context) (*ExtractResponse, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return nil, httpErr
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	req, err := DecodeExtractRequest(body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.svc.Extract(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrTextTooLarge) {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "extraction failed")
	}
	return resp, nil
}
