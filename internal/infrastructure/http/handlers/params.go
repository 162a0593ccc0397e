package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/yuzvak/storefront-service/internal/domain/errors"
)

func parseProductID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, errors.ErrInvalidProductID
	}
	return id, nil
}

// backTarget returns the path of a same-origin Referer, or fallback. Only the
// path and query are kept so the redirect can never leave the site.
func backTarget(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host != r.Host || u.Path == "" {
		return fallback
	}
	return u.RequestURI()
}
