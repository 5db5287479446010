package person

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lanternhq/overlap/internal/repositories/person"
	"github.com/lanternhq/overlap/pkg/ingest"
	"github.com/lanternhq/overlap/pkg/utils"
)

// Register registers person routes
func Register(g *echo.Group) {
	g.POST("", IngestPerson)
	g.GET("/:id", GetPerson)
}

// IngestPerson accepts an enrichment payload and flattens it into
// normalized rows
func IngestPerson(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[ingest.PersonRequest](c)
	if err != nil {
		return err
	}

	ctx, processor, err := ectoinject.GetContext[*ingest.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := processor.IngestPerson(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetPerson gets a person by ID
func GetPerson(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	ctx, repo, err := ectoinject.GetContext[*person.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
