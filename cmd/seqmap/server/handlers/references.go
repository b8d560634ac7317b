package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/seqmap/pkg/api/types/errors"
	apiseq "github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/visualize"
)

// References is the part of *seqcache.Cache handlers use.
type References interface {
	Load(ctx context.Context, force bool) ([]domain.ReferenceSequence, error)
	Lookup(query string) (apiseq.Lookup, error)
}

// GetReferencesHandler responds scatter points of the reference dataset.
//
// With query "refresh=true", the dataset is fetched again.
func GetReferencesHandler(refs References) echo.HandlerFunc {
	return func(c echo.Context) error {
		refresh := false
		if q := c.QueryParam("refresh"); q != "" {
			b, err := strconv.ParseBool(q)
			if err != nil {
				return apierr.BadRequest(`"refresh" should be true or false`, err)
			}
			refresh = b
		}

		loaded, err := refs.Load(c.Request().Context(), refresh)
		if err != nil {
			return apierr.BadGateway(err)
		}
		return c.JSON(http.StatusOK, visualize.References(loaded))
	}
}

func GetReferenceHandler(refs References, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := refs.Load(c.Request().Context(), false); err != nil {
			return apierr.BadGateway(err)
		}

		query := c.Param(param)
		found, err := refs.Lookup(query)
		if errors.Is(err, domain.ErrNotFound) {
			return apierr.NotFound(apierr.WithAdvice("no reference sequence matches " + query))
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, found)
	}
}
