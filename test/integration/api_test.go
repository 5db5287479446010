package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanternhq/overlap/pkg/ingest"
	"github.com/lanternhq/overlap/pkg/routes/company"
	"github.com/lanternhq/overlap/pkg/routes/customer"
	"github.com/lanternhq/overlap/pkg/utils"
)

func bindJSON[T any](t *testing.T, body any) (T, error) {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return utils.BindRequest[T](c)
}

func TestCompanyAPI_Validation(t *testing.T) {
	t.Run("UpsertCompany_ValidRequest", func(t *testing.T) {
		req, err := bindJSON[company.UpsertRequest](t, map[string]any{
			"name":   "Acme Corp",
			"domain": "acme.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", req.Name)
		require.NotNil(t, req.Domain)
		assert.Equal(t, "acme.com", *req.Domain)
	})

	t.Run("UpsertCompany_MissingName", func(t *testing.T) {
		_, err := bindJSON[company.UpsertRequest](t, map[string]any{
			"domain": "acme.com",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestCustomerAPI_Validation(t *testing.T) {
	t.Run("ReplaceCustomers_ValidRequest", func(t *testing.T) {
		req, err := bindJSON[customer.ReplaceRequest](t, map[string]any{
			"source": "csv-upload",
			"customers": []map[string]any{
				{"name": "Initech", "domain": "initech.com"},
				{"name": "Globex"},
			},
		})
		require.NoError(t, err)
		assert.Len(t, req.Customers, 2)
		assert.Equal(t, "csv-upload", req.Source)
	})

	t.Run("ReplaceCustomers_MissingCustomers", func(t *testing.T) {
		_, err := bindJSON[customer.ReplaceRequest](t, map[string]any{
			"source": "csv-upload",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("ReplaceCustomers_EmptyListAllowed", func(t *testing.T) {
		req, err := bindJSON[customer.ReplaceRequest](t, map[string]any{
			"customers": []map[string]any{},
		})
		require.NoError(t, err)
		assert.Empty(t, req.Customers)
	})
}

func TestIngestAPI_Validation(t *testing.T) {
	t.Run("IngestPerson_ValidRequest", func(t *testing.T) {
		req, err := bindJSON[ingest.PersonRequest](t, map[string]any{
			"source":       "clay",
			"linkedin_url": "https://www.linkedin.com/in/jane-doe",
			"full_name":    "Jane Doe",
			"work_history": []map[string]any{
				{"company_name": "Acme", "company_domain": "acme.com", "is_current": true},
			},
			"raw_payload": map[string]any{"id": "abc123"},
		})
		require.NoError(t, err)
		assert.Equal(t, "clay", req.Source)
		assert.Len(t, req.WorkHistory, 1)
		assert.True(t, req.WorkHistory[0].IsCurrent)
	})

	t.Run("IngestPerson_MissingSource", func(t *testing.T) {
		_, err := bindJSON[ingest.PersonRequest](t, map[string]any{
			"linkedin_url": "https://www.linkedin.com/in/jane-doe",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("IngestPerson_MissingLinkedInURL", func(t *testing.T) {
		_, err := bindJSON[ingest.PersonRequest](t, map[string]any{
			"source": "clay",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}
