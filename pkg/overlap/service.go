// Package overlap correlates customers of tracked companies with the
// alumni of those companies.
package overlap

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lanternhq/overlap/pkg/aggregate"
	"github.com/lanternhq/overlap/pkg/cache"
	"github.com/lanternhq/overlap/pkg/graph"
	"github.com/lanternhq/overlap/pkg/metrics"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/normalizers"
	"github.com/lanternhq/overlap/pkg/pagination"
	"github.com/lanternhq/overlap/pkg/tracing"
)

// countBatchSize bounds how many customer keys go into one count query,
// which is also the granularity of the summary's best-effort skipping.
const countBatchSize = 200

// defaultEmployerLimit caps the SQL-side employer summary when no limit
// is configured.
const defaultEmployerLimit = 500

type companyStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Company, error)
	List(ctx context.Context, offset, limit int) ([]models.Company, error)
}

type customerStore interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID, offset, limit int) ([]models.CompanyCustomer, error)
}

type alumniStore interface {
	ListByCustomerKey(ctx context.Context, companyID uuid.UUID, customerKey string, offset, limit int) ([]models.CustomerAlumnus, error)
	CountByCustomerKeys(ctx context.Context, companyID uuid.UUID, keys []string) (map[string]int, error)
	RefreshCounts(ctx context.Context) error
}

type workHistoryStore interface {
	ListAll(ctx context.Context, offset, limit int) ([]models.WorkHistory, error)
	SummarizeAll(ctx context.Context, limit int) ([]models.EmployerBucket, error)
	ListCurrentForAlumni(ctx context.Context, companyID uuid.UUID, offset, limit int) ([]models.WorkHistory, error)
	SummarizeCurrentForAlumni(ctx context.Context, companyID uuid.UUID, limit int) ([]models.EmployerBucket, error)
}

// Service implements the overlap operations on top of the repositories.
type Service struct {
	companies     companyStore
	customers     customerStore
	alumni        alumniStore
	work          workHistoryStore
	summaryCache  *cache.SummaryCache
	projector     *graph.Projector
	logger        ectologger.Logger
	pageSize      int
	employerLimit int
}

// NewService creates a new overlap service. The cache and projector are
// optional and may be nil.
func NewService(
	companies companyStore,
	customers customerStore,
	alumni alumniStore,
	work workHistoryStore,
	summaryCache *cache.SummaryCache,
	projector *graph.Projector,
	logger ectologger.Logger,
	pageSize int,
	employerLimit int,
) *Service {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &Service{
		companies:     companies,
		customers:     customers,
		alumni:        alumni,
		work:          work,
		summaryCache:  summaryCache,
		projector:     projector,
		logger:        logger,
		pageSize:      pageSize,
		employerLimit: employerLimit,
	}
}

// SummarizeCustomers counts alumni per customer of a company. Matching
// is by normalized customer domain only, so a customer without a domain
// always reports zero. Every customer row yields one summary row. The
// count queries run in batches; a failed batch marks the summary partial
// and leaves its customers at zero. Partial summaries bypass the cache.
func (s *Service) SummarizeCustomers(ctx context.Context, companyID uuid.UUID) (*models.OverlapSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "overlap.Service.SummarizeCustomers")
	defer span.End()

	if cached := s.summaryCache.Get(ctx, companyID); cached != nil {
		return cached, nil
	}

	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return nil, err
	}

	customers, err := pagination.FetchAll(ctx, s.pageSize, func(ctx context.Context, offset, limit int) ([]models.CompanyCustomer, error) {
		metrics.PagesFetched.WithLabelValues("company_customers").Inc()
		return s.customers.ListByCompany(ctx, companyID, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	summary := &models.OverlapSummary{
		CompanyID: companyID,
		Customers: make([]models.CustomerOverlap, 0, len(customers)),
	}

	seen := map[string]bool{}
	var keys []string
	for _, customer := range customers {
		overlap := toOverlap(customer)
		summary.Customers = append(summary.Customers, overlap)
		if overlap.CustomerKey != "" && !seen[overlap.CustomerKey] {
			seen[overlap.CustomerKey] = true
			keys = append(keys, overlap.CustomerKey)
		}
	}

	counts := map[string]int{}
	for start := 0; start < len(keys); start += countBatchSize {
		end := start + countBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		batchCounts, err := s.alumni.CountByCustomerKeys(ctx, companyID, batch)
		if err != nil {
			// The batch's customers fall back to zero
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"company_id": companyID,
				"batch_size": len(batch),
			}).Warn("Skipping customer count batch in summary")
			summary.Partial = true
			continue
		}
		for key, count := range batchCounts {
			counts[key] = count
		}
	}

	for i := range summary.Customers {
		if key := summary.Customers[i].CustomerKey; key != "" {
			summary.Customers[i].AlumniCount = counts[key]
		}
	}

	// Stable so equal counts keep the customer-name input order
	sort.SliceStable(summary.Customers, func(i, j int) bool {
		return summary.Customers[i].AlumniCount > summary.Customers[j].AlumniCount
	})

	s.summaryCache.Put(ctx, summary)
	return summary, nil
}

// ListAlumni retrieves every alumnus matching one customer domain of a
// company. Unlike the summary this is strict, any page failure fails the
// call.
func (s *Service) ListAlumni(ctx context.Context, companyID uuid.UUID, customerDomain string) ([]models.CustomerAlumnus, error) {
	ctx, span := tracing.StartSpan(ctx, "overlap.Service.ListAlumni")
	defer span.End()

	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return nil, err
	}

	key := normalizers.Domain(customerDomain)
	if key == "" {
		return []models.CustomerAlumnus{}, nil
	}

	alumni, err := pagination.FetchAll(ctx, s.pageSize, func(ctx context.Context, offset, limit int) ([]models.CustomerAlumnus, error) {
		metrics.PagesFetched.WithLabelValues("v_customer_alumni").Inc()
		return s.alumni.ListByCustomerKey(ctx, companyID, key, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	if alumni == nil {
		alumni = []models.CustomerAlumnus{}
	}

	return alumni, nil
}

// Employers rolls up the entire work history relation into one summary
// per employer key, counting past and current tenures. Strict, any page
// failure fails the call.
func (s *Service) Employers(ctx context.Context) ([]models.EmployerBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "overlap.Service.Employers")
	defer span.End()

	rows, err := pagination.FetchAll(ctx, s.pageSize, func(ctx context.Context, offset, limit int) ([]models.WorkHistory, error) {
		metrics.PagesFetched.WithLabelValues("work_history").Inc()
		return s.work.ListAll(ctx, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	buckets := aggregate.Employers(rows)
	if buckets == nil {
		buckets = []models.EmployerBucket{}
	}
	return buckets, nil
}

// EmployersSummary is the cheap variant of Employers. The bucketing runs
// inside Postgres instead of paging rows through the service, capped at
// the configured limit, at the cost of first-seen display names.
func (s *Service) EmployersSummary(ctx context.Context) ([]models.EmployerBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "overlap.Service.EmployersSummary")
	defer span.End()

	buckets, err := s.work.SummarizeAll(ctx, s.summaryLimit())
	if err != nil {
		return nil, err
	}
	if buckets == nil {
		buckets = []models.EmployerBucket{}
	}
	return buckets, nil
}

// AlumniEmployers rolls up where a company's alumni work today. Strict
// like ListAlumni, then bucketed in memory.
func (s *Service) AlumniEmployers(ctx context.Context, companyID uuid.UUID) ([]models.EmployerBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "overlap.Service.AlumniEmployers")
	defer span.End()

	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return nil, err
	}

	rows, err := pagination.FetchAll(ctx, s.pageSize, func(ctx context.Context, offset, limit int) ([]models.WorkHistory, error) {
		metrics.PagesFetched.WithLabelValues("work_history_current").Inc()
		return s.work.ListCurrentForAlumni(ctx, companyID, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	return aggregate.Top(aggregate.Employers(rows), s.employerLimit), nil
}

// AlumniEmployersSummary is the SQL-side variant of AlumniEmployers.
func (s *Service) AlumniEmployersSummary(ctx context.Context, companyID uuid.UUID) ([]models.EmployerBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "overlap.Service.AlumniEmployersSummary")
	defer span.End()

	if _, err := s.companies.Get(ctx, companyID); err != nil {
		return nil, err
	}

	buckets, err := s.work.SummarizeCurrentForAlumni(ctx, companyID, s.summaryLimit())
	if err != nil {
		return nil, err
	}
	if buckets == nil {
		buckets = []models.EmployerBucket{}
	}
	return buckets, nil
}

func (s *Service) summaryLimit() int {
	if s.employerLimit > 0 {
		return s.employerLimit
	}
	return defaultEmployerLimit
}

// RefreshAlumniCounts rebuilds the materialized tallies, drops the
// summary cache and reprojects the overlap graph when one is attached.
// Returns the completion time of the refresh.
func (s *Service) RefreshAlumniCounts(ctx context.Context) (time.Time, error) {
	ctx, span := tracing.StartSpan(ctx, "overlap.Service.RefreshAlumniCounts")
	defer span.End()

	start := time.Now()
	if err := s.alumni.RefreshCounts(ctx); err != nil {
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return time.Time{}, err
	}
	refreshedAt := time.Now().UTC()
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	metrics.RefreshesTotal.WithLabelValues("success").Inc()

	s.summaryCache.Invalidate(ctx)

	if s.projector != nil {
		if err := s.projectAll(ctx); err != nil {
			// The refresh itself succeeded, projection lag is tolerable
			s.logger.WithContext(ctx).WithError(err).Warn("Graph projection after refresh failed")
		}
	}

	return refreshedAt, nil
}

func (s *Service) projectAll(ctx context.Context) error {
	companies, err := pagination.FetchAll(ctx, s.pageSize, func(ctx context.Context, offset, limit int) ([]models.Company, error) {
		return s.companies.List(ctx, offset, limit)
	})
	if err != nil {
		return err
	}

	for _, company := range companies {
		summary, err := s.SummarizeCustomers(ctx, company.ID)
		if err != nil {
			return err
		}
		if summary.Partial {
			s.logger.WithContext(ctx).WithFields(map[string]any{"company_id": company.ID}).Warn("Skipping graph projection for partial summary")
			continue
		}
		if err := s.projector.ProjectOverlaps(ctx, company.ID.String(), company.Name, summary.Customers); err != nil {
			return err
		}
	}

	return nil
}

// toOverlap builds a summary row for one customer. The matching key is
// the normalized domain only; a customer without one keeps an empty key
// and its count stays at zero.
func toOverlap(customer models.CompanyCustomer) models.CustomerOverlap {
	var domain, name string
	if customer.CustomerDomain != nil {
		domain = *customer.CustomerDomain
	}
	if customer.CustomerName != nil {
		name = *customer.CustomerName
	}

	display := name
	if display == "" {
		display = domain
	}

	key := normalizers.Domain(domain)
	return models.CustomerOverlap{
		CustomerID:     customer.ID,
		CustomerKey:    key,
		CustomerName:   display,
		CustomerDomain: key,
	}
}
