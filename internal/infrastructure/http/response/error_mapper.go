package response

import (
	"context"
	"errors"
	"net/http"

	domainErrors "github.com/yuzvak/storefront-service/internal/domain/errors"
)

type ErrorMapping struct {
	HTTPStatus int
	Status     Status
	Message    string
}

var errorMappings = map[error]ErrorMapping{
	domainErrors.ErrProductNotFound: {
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Message:    "We could not find that product.",
	},
	domainErrors.ErrInvalidProductID: {
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusBadRequest,
		Message:    "That product link is not valid.",
	},
	domainErrors.ErrSessionRequired: {
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusBadRequest,
		Message:    "Your session has expired. Please reload the page.",
	},
	domainErrors.ErrSessionLocked: {
		HTTPStatus: http.StatusServiceUnavailable,
		Status:     StatusConflict,
		Message:    "Your cart is busy with another request. Please try again.",
	},
	domainErrors.ErrSessionStoreDegraded: {
		HTTPStatus: http.StatusServiceUnavailable,
		Status:     StatusServiceUnavailable,
		Message:    "Your cart is unavailable right now. Please try again shortly.",
	},
	domainErrors.ErrCatalogUnavailable: {
		HTTPStatus: http.StatusBadGateway,
		Status:     StatusBadGateway,
		Message:    "The store is having trouble loading products. Please try again shortly.",
	},
	context.DeadlineExceeded: {
		HTTPStatus: http.StatusGatewayTimeout,
		Status:     StatusTimeout,
		Message:    "The store took too long to respond. Please try again.",
	},
}

// ErrorPage is the data bag for the error view. It carries the layout fields
// so the shared header renders without catalog data.
type ErrorPage struct {
	Title          string
	StatusCode     int
	Status         Status
	Message        string
	Categories     []string
	ActiveCategory string
	CartCount      int
}

func MapDomainError(err error) (int, *ErrorPage) {
	for domainErr, mapping := range errorMappings {
		if errors.Is(err, domainErr) {
			return mapping.HTTPStatus, newErrorPage(mapping)
		}
	}

	return http.StatusInternalServerError, newErrorPage(ErrorMapping{
		HTTPStatus: http.StatusInternalServerError,
		Status:     StatusInternalError,
		Message:    "Something went wrong. Please try again.",
	})
}

func newErrorPage(m ErrorMapping) *ErrorPage {
	return &ErrorPage{
		Title:      http.StatusText(m.HTTPStatus),
		StatusCode: m.HTTPStatus,
		Status:     m.Status,
		Message:    m.Message,
	}
}

// WriteDomainError renders the opaque error page for err. Internal details
// never reach the body.
func WriteDomainError(w http.ResponseWriter, renderer *Renderer, err error) {
	statusCode, page := MapDomainError(err)
	if renderer == nil || renderer.Render(w, statusCode, "error", page) != nil {
		http.Error(w, page.Message, statusCode)
	}
}
