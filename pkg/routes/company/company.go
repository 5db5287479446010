package company

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lanternhq/overlap/internal/repositories/company"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/utils"
)

// Register registers company routes
func Register(g *echo.Group) {
	g.POST("", UpsertCompany)
	g.GET("", ListCompanies)
	g.GET("/:id", GetCompany)
}

// UpsertRequest is the body of a company upsert
type UpsertRequest struct {
	Name        string  `json:"name" validate:"required"`
	Domain      *string `json:"domain"`
	LinkedInURL *string `json:"linkedin_url"`
}

// UpsertCompany creates or updates a tracked company
func UpsertCompany(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[UpsertRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*company.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := repo.Upsert(ctx, &models.Company{
		Name:        req.Name,
		Domain:      req.Domain,
		LinkedInURL: req.LinkedInURL,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ListCompanies lists tracked companies with their alumni counts
func ListCompanies(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*company.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	counts, err := repo.ListWithAlumniCounts(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, counts)
}

// GetCompany gets a company by ID
func GetCompany(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	ctx, repo, err := ectoinject.GetContext[*company.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
