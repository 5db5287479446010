package customer

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lanternhq/overlap/internal/repositories/company"
	"github.com/lanternhq/overlap/internal/repositories/customer"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/utils"
)

// Register registers customer routes under a company group
func Register(g *echo.Group) {
	g.PUT("/:id/customers", ReplaceCustomers)
	g.GET("/:id/customers", ListCustomers)
}

// ReplaceRequest is the body of a customer list replacement
type ReplaceRequest struct {
	Source    string         `json:"source"`
	Customers []CustomerItem `json:"customers" validate:"required"`
}

// CustomerItem is one customer in a replacement request
type CustomerItem struct {
	Name   *string `json:"name"`
	Domain *string `json:"domain"`
}

// ReplaceCustomers swaps the full customer list for a company
func ReplaceCustomers(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	req, err := utils.BindRequest[ReplaceRequest](c)
	if err != nil {
		return err
	}

	ctx, companies, err := ectoinject.GetContext[*company.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	if _, err := companies.Get(ctx, companyID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*customer.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	customers := make([]models.CompanyCustomer, len(req.Customers))
	for i, item := range req.Customers {
		var source *string
		if req.Source != "" {
			source = &req.Source
		}
		customers[i] = models.CompanyCustomer{
			CompanyID:      companyID,
			CustomerName:   item.Name,
			CustomerDomain: item.Domain,
			Source:         source,
		}
	}

	inserted, err := repo.Replace(ctx, companyID, customers)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int{"inserted": inserted})
}

// ListCustomers lists one page of a company's customers
func ListCustomers(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	ctx, repo, err := ectoinject.GetContext[*customer.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	customers, err := repo.ListByCompany(ctx, companyID, offset, limit)
	if err != nil {
		return err
	}
	if customers == nil {
		customers = []models.CompanyCustomer{}
	}

	return c.JSON(http.StatusOK, customers)
}
