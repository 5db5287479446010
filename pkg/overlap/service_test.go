package overlap

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompanies struct {
	companies map[uuid.UUID]*models.Company
}

func (f *fakeCompanies) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	if company, ok := f.companies[id]; ok {
		return company, nil
	}
	return nil, httperror.NewHTTPError(http.StatusNotFound, "company not found")
}

func (f *fakeCompanies) List(ctx context.Context, offset, limit int) ([]models.Company, error) {
	var all []models.Company
	for _, c := range f.companies {
		all = append(all, *c)
	}
	return page(all, offset, limit), nil
}

type fakeCustomers struct {
	rows []models.CompanyCustomer
	err  error
}

func (f *fakeCustomers) ListByCompany(ctx context.Context, companyID uuid.UUID, offset, limit int) ([]models.CompanyCustomer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return page(f.rows, offset, limit), nil
}

type fakeAlumni struct {
	counts   map[string]int
	byKey    map[string][]models.CustomerAlumnus
	failKeys map[string]bool
	listErr  error
}

func (f *fakeAlumni) ListByCustomerKey(ctx context.Context, companyID uuid.UUID, key string, offset, limit int) ([]models.CustomerAlumnus, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return page(f.byKey[key], offset, limit), nil
}

func (f *fakeAlumni) CountByCustomerKeys(ctx context.Context, companyID uuid.UUID, keys []string) (map[string]int, error) {
	counts := map[string]int{}
	for _, key := range keys {
		if f.failKeys[key] {
			return nil, errors.New("count query failed")
		}
		counts[key] = f.counts[key]
	}
	return counts, nil
}

func (f *fakeAlumni) RefreshCounts(ctx context.Context) error {
	return nil
}

type fakeWork struct {
	rows        []models.WorkHistory
	currentRows []models.WorkHistory
	buckets     []models.EmployerBucket
	err         error
}

func (f *fakeWork) ListAll(ctx context.Context, offset, limit int) ([]models.WorkHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return page(f.rows, offset, limit), nil
}

func (f *fakeWork) SummarizeAll(ctx context.Context, limit int) ([]models.EmployerBucket, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.buckets) > limit {
		return f.buckets[:limit], nil
	}
	return f.buckets, nil
}

func (f *fakeWork) ListCurrentForAlumni(ctx context.Context, companyID uuid.UUID, offset, limit int) ([]models.WorkHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return page(f.currentRows, offset, limit), nil
}

func (f *fakeWork) SummarizeCurrentForAlumni(ctx context.Context, companyID uuid.UUID, limit int) ([]models.EmployerBucket, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.buckets) > limit {
		return f.buckets[:limit], nil
	}
	return f.buckets, nil
}

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func strPtr(s string) *string {
	return &s
}

func newTestService(companies *fakeCompanies, customers *fakeCustomers, alumni *fakeAlumni, work *fakeWork) *Service {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewService(companies, customers, alumni, work, nil, nil, logger, 10, 0)
}

func TestSummarizeCustomers(t *testing.T) {
	companyID := uuid.New()
	companies := &fakeCompanies{companies: map[uuid.UUID]*models.Company{
		companyID: {ID: companyID, Name: "Acme"},
	}}

	t.Run("counts alumni per customer sorted by count", func(t *testing.T) {
		customers := &fakeCustomers{rows: []models.CompanyCustomer{
			{ID: uuid.New(), CustomerName: strPtr("Big"), CustomerDomain: strPtr("big.io")},
			{ID: uuid.New(), CustomerName: strPtr("Small"), CustomerDomain: strPtr("small.io")},
		}}
		alumni := &fakeAlumni{counts: map[string]int{"small.io": 1, "big.io": 7}}

		svc := newTestService(companies, customers, alumni, &fakeWork{})
		summary, err := svc.SummarizeCustomers(context.Background(), companyID)
		require.NoError(t, err)

		assert.False(t, summary.Partial)
		require.Len(t, summary.Customers, 2)
		assert.Equal(t, "Big", summary.Customers[0].CustomerName)
		assert.Equal(t, 7, summary.Customers[0].AlumniCount)
		assert.Equal(t, "Small", summary.Customers[1].CustomerName)
	})

	t.Run("one row per customer row with its id", func(t *testing.T) {
		first := uuid.New()
		second := uuid.New()
		customers := &fakeCustomers{rows: []models.CompanyCustomer{
			{ID: first, CustomerName: strPtr("Acme Inc"), CustomerDomain: strPtr("acme.io")},
			{ID: second, CustomerName: strPtr("ACME"), CustomerDomain: strPtr("ACME.IO")},
		}}
		alumni := &fakeAlumni{counts: map[string]int{"acme.io": 3}}

		svc := newTestService(companies, customers, alumni, &fakeWork{})
		summary, err := svc.SummarizeCustomers(context.Background(), companyID)
		require.NoError(t, err)

		require.Len(t, summary.Customers, 2)
		assert.Equal(t, first, summary.Customers[0].CustomerID)
		assert.Equal(t, second, summary.Customers[1].CustomerID)
		assert.Equal(t, 3, summary.Customers[0].AlumniCount)
		assert.Equal(t, 3, summary.Customers[1].AlumniCount)
	})

	t.Run("customer without a domain reports zero, never a name match", func(t *testing.T) {
		customers := &fakeCustomers{rows: []models.CompanyCustomer{
			{ID: uuid.New(), CustomerName: strPtr("Initech")},
			{ID: uuid.New(), CustomerName: strPtr("Real"), CustomerDomain: strPtr("real.io")},
		}}
		// A name-keyed count exists but must never be picked up
		alumni := &fakeAlumni{counts: map[string]int{"initech": 9, "real.io": 2}}

		svc := newTestService(companies, customers, alumni, &fakeWork{})
		summary, err := svc.SummarizeCustomers(context.Background(), companyID)
		require.NoError(t, err)

		require.Len(t, summary.Customers, 2)
		assert.Equal(t, "real.io", summary.Customers[0].CustomerKey)
		assert.Equal(t, 2, summary.Customers[0].AlumniCount)
		assert.Equal(t, "Initech", summary.Customers[1].CustomerName)
		assert.Equal(t, "", summary.Customers[1].CustomerKey)
		assert.Equal(t, 0, summary.Customers[1].AlumniCount)
	})

	t.Run("failed count batch keeps its customers at zero and marks partial", func(t *testing.T) {
		var rows []models.CompanyCustomer
		for i := 0; i < countBatchSize+1; i++ {
			rows = append(rows, models.CompanyCustomer{
				ID:             uuid.New(),
				CustomerDomain: strPtr(fmt.Sprintf("customer-%d.io", i)),
			})
		}
		customers := &fakeCustomers{rows: rows}
		// First batch fails on its first key, second batch succeeds
		alumni := &fakeAlumni{
			counts:   map[string]int{fmt.Sprintf("customer-%d.io", countBatchSize): 4},
			failKeys: map[string]bool{"customer-0.io": true},
		}

		svc := newTestService(companies, customers, alumni, &fakeWork{})
		summary, err := svc.SummarizeCustomers(context.Background(), companyID)
		require.NoError(t, err)

		assert.True(t, summary.Partial)
		require.Len(t, summary.Customers, countBatchSize+1)
		assert.Equal(t, 4, summary.Customers[0].AlumniCount)
		assert.Equal(t, 0, summary.Customers[1].AlumniCount)
	})

	t.Run("unknown company", func(t *testing.T) {
		svc := newTestService(companies, &fakeCustomers{}, &fakeAlumni{}, &fakeWork{})
		_, err := svc.SummarizeCustomers(context.Background(), uuid.New())
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("customer fetch failure is strict", func(t *testing.T) {
		customers := &fakeCustomers{err: errors.New("db is down")}
		svc := newTestService(companies, customers, &fakeAlumni{}, &fakeWork{})
		_, err := svc.SummarizeCustomers(context.Background(), companyID)
		require.Error(t, err)
	})
}

func TestListAlumni(t *testing.T) {
	companyID := uuid.New()
	companies := &fakeCompanies{companies: map[uuid.UUID]*models.Company{
		companyID: {ID: companyID, Name: "Acme"},
	}}

	t.Run("fetches every page", func(t *testing.T) {
		var rows []models.CustomerAlumnus
		for i := 0; i < 25; i++ {
			rows = append(rows, models.CustomerAlumnus{PersonID: uuid.New(), CustomerKey: "big.io"})
		}
		alumni := &fakeAlumni{byKey: map[string][]models.CustomerAlumnus{"big.io": rows}}

		svc := newTestService(companies, &fakeCustomers{}, alumni, &fakeWork{})
		got, err := svc.ListAlumni(context.Background(), companyID, "big.io")
		require.NoError(t, err)
		assert.Len(t, got, 25)
	})

	t.Run("domain match is case insensitive", func(t *testing.T) {
		alumni := &fakeAlumni{byKey: map[string][]models.CustomerAlumnus{
			"big.io": {{PersonID: uuid.New(), CustomerKey: "big.io"}},
		}}
		svc := newTestService(companies, &fakeCustomers{}, alumni, &fakeWork{})
		got, err := svc.ListAlumni(context.Background(), companyID, "Big.IO")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("page failure fails the call", func(t *testing.T) {
		alumni := &fakeAlumni{listErr: errors.New("db is down")}
		svc := newTestService(companies, &fakeCustomers{}, alumni, &fakeWork{})
		_, err := svc.ListAlumni(context.Background(), companyID, "big.io")
		require.Error(t, err)
	})

	t.Run("empty domain returns empty list", func(t *testing.T) {
		svc := newTestService(companies, &fakeCustomers{}, &fakeAlumni{}, &fakeWork{})
		got, err := svc.ListAlumni(context.Background(), companyID, "  ")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestEmployers(t *testing.T) {
	t.Run("aggregates the full relation with past and current counts", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Big Co"), IsCurrent: true},
			{CompanyName: strPtr("Big Co"), IsCurrent: false},
			{CompanyName: strPtr("Small Co"), IsCurrent: false},
		}
		work := &fakeWork{rows: rows}

		svc := newTestService(&fakeCompanies{}, &fakeCustomers{}, &fakeAlumni{}, work)
		buckets, err := svc.Employers(context.Background())
		require.NoError(t, err)

		require.Len(t, buckets, 2)
		assert.Equal(t, "Big Co", buckets[0].DisplayName)
		assert.Equal(t, 1, buckets[0].PastCount)
		assert.Equal(t, 1, buckets[0].CurrentCount)
	})

	t.Run("a past stint reaches the rollup", func(t *testing.T) {
		work := &fakeWork{rows: []models.WorkHistory{
			{CompanyName: strPtr("Acme"), CompanyDomain: strPtr("acme.com"), IsCurrent: false},
		}}

		svc := newTestService(&fakeCompanies{}, &fakeCustomers{}, &fakeAlumni{}, work)
		buckets, err := svc.Employers(context.Background())
		require.NoError(t, err)

		require.Len(t, buckets, 1)
		assert.Equal(t, "acme.com", buckets[0].Key)
		assert.Equal(t, 1, buckets[0].PastCount)
		assert.Equal(t, 0, buckets[0].CurrentCount)
	})

	t.Run("page failure fails the rollup", func(t *testing.T) {
		work := &fakeWork{err: errors.New("db is down")}
		svc := newTestService(&fakeCompanies{}, &fakeCustomers{}, &fakeAlumni{}, work)
		_, err := svc.Employers(context.Background())
		require.Error(t, err)
	})
}

func TestEmployersSummary(t *testing.T) {
	t.Run("returns SQL buckets", func(t *testing.T) {
		work := &fakeWork{buckets: []models.EmployerBucket{
			{Key: "big.io", DisplayName: "Big Co", PastCount: 10, CurrentCount: 5},
			{Key: "small.io", DisplayName: "Small Co", PastCount: 1, CurrentCount: 0},
		}}
		svc := newTestService(&fakeCompanies{}, &fakeCustomers{}, &fakeAlumni{}, work)
		buckets, err := svc.EmployersSummary(context.Background())
		require.NoError(t, err)
		require.Len(t, buckets, 2)
		assert.Equal(t, "big.io", buckets[0].Key)
	})

	t.Run("empty relation returns empty list", func(t *testing.T) {
		svc := newTestService(&fakeCompanies{}, &fakeCustomers{}, &fakeAlumni{}, &fakeWork{})
		buckets, err := svc.EmployersSummary(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, buckets)
		assert.Empty(t, buckets)
	})
}

func TestAlumniEmployers(t *testing.T) {
	companyID := uuid.New()
	companies := &fakeCompanies{companies: map[uuid.UUID]*models.Company{
		companyID: {ID: companyID, Name: "Acme"},
	}}

	t.Run("aggregates current employers of alumni", func(t *testing.T) {
		var rows []models.WorkHistory
		for i := 0; i < 15; i++ {
			rows = append(rows, models.WorkHistory{CompanyName: strPtr("Big Co"), IsCurrent: true})
		}
		rows = append(rows, models.WorkHistory{CompanyName: strPtr("Small Co"), IsCurrent: true})
		work := &fakeWork{currentRows: rows}

		svc := newTestService(companies, &fakeCustomers{}, &fakeAlumni{}, work)
		buckets, err := svc.AlumniEmployers(context.Background(), companyID)
		require.NoError(t, err)

		require.Len(t, buckets, 2)
		assert.Equal(t, "Big Co", buckets[0].DisplayName)
		assert.Equal(t, 15, buckets[0].CurrentCount)
	})

	t.Run("unknown company", func(t *testing.T) {
		svc := newTestService(companies, &fakeCustomers{}, &fakeAlumni{}, &fakeWork{})
		_, err := svc.AlumniEmployers(context.Background(), uuid.New())
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestRefreshAlumniCounts(t *testing.T) {
	t.Run("reports when the refresh completed", func(t *testing.T) {
		svc := newTestService(&fakeCompanies{}, &fakeCustomers{}, &fakeAlumni{}, &fakeWork{})
		refreshedAt, err := svc.RefreshAlumniCounts(context.Background())
		require.NoError(t, err)
		assert.False(t, refreshedAt.IsZero())
	})
}
