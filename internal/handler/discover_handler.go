package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/gluten-finder/api/internal/dto"
	"github.com/octobees/gluten-finder/api/internal/entity"
	"github.com/octobees/gluten-finder/api/internal/logger"
	middlewarepkg "github.com/octobees/gluten-finder/api/internal/middleware"
	"github.com/octobees/gluten-finder/api/internal/service"
)

// Discoverer runs one discover-and-classify pipeline.
type Discoverer interface {
	Discover(ctx context.Context, query entity.SearchQuery) (entity.Discovery, error)
}

var _ Discoverer = (*service.DiscoveryService)(nil)

// DiscoverHandler exposes the gluten-free discovery endpoint.
type DiscoverHandler struct {
	service  Discoverer
	validate *validator.Validate
	log      *zap.Logger
}

// NewDiscoverHandler wires the handler.
func NewDiscoverHandler(svc Discoverer, log *zap.Logger) *DiscoverHandler {
	return &DiscoverHandler{
		service:  svc,
		validate: validator.New(),
		log:      logger.OrNop(log),
	}
}

// Discover handles GET /discover (and the /get-restaurants alias).
func (h *DiscoverHandler) Discover(c echo.Context) error {
	var req dto.DiscoverRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validate.Struct(req); err != nil {
		return Error(c, http.StatusBadRequest, validationMessage(err))
	}

	query := entity.SearchQuery{
		City:    req.City,
		Type:    entity.ParseEstablishmentType(req.Type),
		Country: req.Country,
	}

	discovery, err := h.service.Discover(c.Request().Context(), query)
	if err != nil {
		var vErr service.ValidationError
		if errors.As(err, &vErr) {
			return Error(c, http.StatusBadRequest, vErr.Message)
		}
		h.log.Error("discovery failed",
			zap.String("request_id", middlewarepkg.RequestIDFromContext(c)),
			zap.Error(err),
		)
		return Error(c, http.StatusInternalServerError, "failed to discover establishments")
	}

	resp := dto.DiscoverResponse{
		City:           discovery.Query.City,
		Type:           discovery.Query.Type.Slug(),
		Country:        discovery.Query.Country,
		Outcome:        string(discovery.Outcome),
		DisplayText:    discovery.DisplayText,
		Establishments: dto.NewEstablishmentResponses(discovery.Establishments),
	}
	if len(discovery.Establishments) > 0 {
		resp.Advisory = service.Advisory
	}

	return Success(c, http.StatusOK, "discovery complete", resp)
}

// validationMessage reports the first failing field in a caller-friendly form.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid query parameters"
	}
	fe := fieldErrs[0]
	field := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " is too long"
	default:
		return "invalid " + field
	}
}

func fieldName(structField string) string {
	switch structField {
	case "City":
		return "city"
	case "Type":
		return "type"
	case "Country":
		return "country"
	default:
		return structField
	}
}
