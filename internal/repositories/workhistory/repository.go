package workhistory

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lanternhq/overlap/pkg/database"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/normalizers"
	"github.com/lanternhq/overlap/pkg/tracing"
)

// Repository handles profile child rows. Work history, education and
// certifications are replaced wholesale on each ingestion.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new work history repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReplaceWorkHistory swaps all work history rows for a person
func (r *Repository) ReplaceWorkHistory(ctx context.Context, personID uuid.UUID, rows []models.WorkHistory) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "workhistory.Repository.ReplaceWorkHistory")
	defer span.End()

	if err := r.deleteForPerson(ctx, "work_history", personID); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("work_history")
	sb.Cols("id", "person_id", "company_name", "company_domain", "title", "start_date", "end_date", "is_current", "created_at")

	for _, row := range rows {
		if row.CompanyDomain != nil {
			normalized := normalizers.Domain(*row.CompanyDomain)
			row.CompanyDomain = &normalized
		}
		sb.Values(uuid.New(), personID, row.CompanyName, row.CompanyDomain, row.Title, normalizeDate(row.StartDate), normalizeDate(row.EndDate), row.IsCurrent, now)
	}

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": personID}).Error("Failed to insert work history")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace work history")
	}

	return len(rows), nil
}

// ReplaceEducation swaps all education rows for a person
func (r *Repository) ReplaceEducation(ctx context.Context, personID uuid.UUID, rows []models.EducationHistory) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "workhistory.Repository.ReplaceEducation")
	defer span.End()

	if err := r.deleteForPerson(ctx, "education_history", personID); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("education_history")
	sb.Cols("id", "person_id", "school_name", "degree", "field_of_study", "start_date", "end_date", "created_at")

	for _, row := range rows {
		sb.Values(uuid.New(), personID, row.SchoolName, row.Degree, row.FieldOfStudy, normalizeDate(row.StartDate), normalizeDate(row.EndDate), now)
	}

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": personID}).Error("Failed to insert education history")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace education history")
	}

	return len(rows), nil
}

// ReplaceCertifications swaps all certification rows for a person
func (r *Repository) ReplaceCertifications(ctx context.Context, personID uuid.UUID, rows []models.Certification) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "workhistory.Repository.ReplaceCertifications")
	defer span.End()

	if err := r.deleteForPerson(ctx, "certifications", personID); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("certifications")
	sb.Cols("id", "person_id", "name", "authority", "issued_at", "created_at")

	for _, row := range rows {
		sb.Values(uuid.New(), personID, row.Name, row.Authority, normalizeDate(row.IssuedAt), now)
	}

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": personID}).Error("Failed to insert certifications")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace certifications")
	}

	return len(rows), nil
}

// ListAll retrieves one page of the full work history relation. Feeds
// the in-memory employer aggregation.
func (r *Repository) ListAll(ctx context.Context, offset, limit int) ([]models.WorkHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "workhistory.Repository.ListAll")
	defer span.End()

	query := `
		SELECT id, person_id, company_name, company_domain, title, start_date::text AS start_date, end_date::text AS end_date, is_current, created_at
		FROM work_history
		ORDER BY id ASC
		OFFSET $1 LIMIT $2
	`

	var rows []models.WorkHistory
	if err := r.db.SelectContext(ctx, &rows, query, offset, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list work history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list work history")
	}

	return rows, nil
}

// SummarizeAll aggregates the full work history relation by employer key
// in SQL, splitting past and current tenures. Rows without an employer
// name are excluded. Display names resolve to the alphabetically first
// spelling rather than the first seen.
func (r *Repository) SummarizeAll(ctx context.Context, limit int) ([]models.EmployerBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "workhistory.Repository.SummarizeAll")
	defer span.End()

	query := `
		SELECT
			COALESCE(NULLIF(lower(trim(company_domain)), ''), lower(trim(company_name))) AS key,
			MIN(company_name) AS display_name,
			COALESCE(MIN(NULLIF(lower(trim(company_domain)), '')), '') AS domain,
			COUNT(*) FILTER (WHERE NOT is_current) AS past_count,
			COUNT(*) FILTER (WHERE is_current) AS current_count
		FROM work_history
		WHERE NULLIF(trim(company_name), '') IS NOT NULL
		GROUP BY 1
		ORDER BY COUNT(*) DESC, key ASC
		LIMIT $1
	`

	var buckets []models.EmployerBucket
	if err := r.db.SelectContext(ctx, &buckets, query, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to summarize employers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to summarize employers")
	}

	return buckets, nil
}

// ListCurrentForAlumni retrieves one page of current employment rows for
// every alumnus of a company. Used by the employer rollup.
func (r *Repository) ListCurrentForAlumni(ctx context.Context, companyID uuid.UUID, offset, limit int) ([]models.WorkHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "workhistory.Repository.ListCurrentForAlumni")
	defer span.End()

	query := `
		SELECT wh.id, wh.person_id, wh.company_name, wh.company_domain, wh.title, wh.start_date::text AS start_date, wh.end_date::text AS end_date, wh.is_current, wh.created_at
		FROM work_history wh
		WHERE wh.is_current = TRUE
		AND wh.person_id IN (
			SELECT DISTINCT person_id FROM v_customer_alumni WHERE company_id = $1
		)
		ORDER BY wh.id ASC
		OFFSET $2 LIMIT $3
	`

	var rows []models.WorkHistory
	if err := r.db.SelectContext(ctx, &rows, query, companyID, offset, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID}).Error("Failed to list current employment for alumni")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list current employment")
	}

	return rows, nil
}

// SummarizeCurrentForAlumni aggregates current employers of a company's
// alumni in SQL. Cheaper than the paged in-memory rollup but the display
// name is the alphabetically first spelling rather than the first seen.
func (r *Repository) SummarizeCurrentForAlumni(ctx context.Context, companyID uuid.UUID, limit int) ([]models.EmployerBucket, error) {
	ctx, span := tracing.StartSpan(ctx, "workhistory.Repository.SummarizeCurrentForAlumni")
	defer span.End()

	query := `
		SELECT
			COALESCE(NULLIF(lower(trim(wh.company_domain)), ''), lower(trim(wh.company_name))) AS key,
			MIN(wh.company_name) AS display_name,
			COALESCE(MIN(NULLIF(lower(trim(wh.company_domain)), '')), '') AS domain,
			0 AS past_count,
			COUNT(DISTINCT wh.person_id) AS current_count
		FROM work_history wh
		WHERE wh.is_current = TRUE
		AND NULLIF(trim(wh.company_name), '') IS NOT NULL
		AND wh.person_id IN (
			SELECT DISTINCT person_id FROM v_customer_alumni WHERE company_id = $1
		)
		GROUP BY 1
		ORDER BY current_count DESC, key ASC
		LIMIT $2
	`

	var buckets []models.EmployerBucket
	if err := r.db.SelectContext(ctx, &buckets, query, companyID, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID}).Error("Failed to summarize current employers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to summarize employers")
	}

	return buckets, nil
}

func (r *Repository) deleteForPerson(ctx context.Context, table string, personID uuid.UUID) error {
	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom(table)
	del.Where(del.Equal("person_id", personID))

	query, args := del.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": personID, "table": table}).Error("Failed to delete child rows")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace child rows")
	}
	return nil
}

func normalizeDate(value *string) *string {
	if value == nil {
		return nil
	}
	normalized := normalizers.Date(*value)
	if normalized == "" {
		return nil
	}
	return &normalized
}
