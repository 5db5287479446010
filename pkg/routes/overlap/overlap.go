package overlap

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lanternhq/overlap/pkg/overlap"
)

// Register registers overlap routes under a company group
func Register(g *echo.Group) {
	g.GET("/:id/overlap/summary", SummarizeCustomers)
	g.GET("/:id/overlap/alumni", ListAlumni)
	g.GET("/:id/overlap/employers", ListAlumniEmployers)
	g.GET("/:id/overlap/employers/summary", SummarizeAlumniEmployers)
}

// RegisterGlobal registers the dataset-wide employer routes
func RegisterGlobal(g *echo.Group) {
	g.GET("", ListEmployers)
	g.GET("/summary", SummarizeEmployers)
}

// SummarizeCustomers counts alumni per customer of a company
func SummarizeCustomers(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	ctx, svc, err := ectoinject.GetContext[*overlap.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summary, err := svc.SummarizeCustomers(ctx, companyID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// ListAlumni lists every alumnus matching one customer domain of a
// company
func ListAlumni(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	domain := c.QueryParam("domain")
	if domain == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "domain query parameter is required")
	}

	ctx, svc, err := ectoinject.GetContext[*overlap.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	alumni, err := svc.ListAlumni(ctx, companyID, domain)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alumni)
}

// ListEmployers rebuilds the employer rollup over the full work history
// relation, counting past and current tenures per employer
func ListEmployers(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[*overlap.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	buckets, err := svc.Employers(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, buckets)
}

// SummarizeEmployers is the SQL-side employer rollup, capped by the
// configured summary limit
func SummarizeEmployers(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, svc, err := ectoinject.GetContext[*overlap.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	buckets, err := svc.EmployersSummary(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, buckets)
}

// ListAlumniEmployers rolls up where a company's alumni work today
func ListAlumniEmployers(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	ctx, svc, err := ectoinject.GetContext[*overlap.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	buckets, err := svc.AlumniEmployers(ctx, companyID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, buckets)
}

// SummarizeAlumniEmployers is the SQL-side variant of the per-company
// alumni employer rollup
func SummarizeAlumniEmployers(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	ctx, svc, err := ectoinject.GetContext[*overlap.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	buckets, err := svc.AlumniEmployersSummary(ctx, companyID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, buckets)
}
