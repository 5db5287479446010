package admin

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/lanternhq/overlap/pkg/overlap"
)

// Register registers admin routes
func Register(g *echo.Group) {
	g.POST("/refresh-alumni-counts", RefreshAlumniCounts)
}

// RefreshAlumniCounts rebuilds the materialized alumni tallies. Safe to
// call repeatedly, the refresh swaps snapshots atomically.
func RefreshAlumniCounts(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[*overlap.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	refreshedAt, err := svc.RefreshAlumniCounts(ctx)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).Info("Refreshed alumni counts")
	}

	return c.JSON(http.StatusOK, map[string]any{"refreshed_at": refreshedAt})
}
