package person

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lanternhq/overlap/pkg/database"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/tracing"
)

// Repository handles person persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new person repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert creates a person or updates the profile fields when the
// LinkedIn URL is already known. The URL is the natural key for
// enrichment payloads, so replays update in place.
func (r *Repository) Upsert(ctx context.Context, person *models.Person) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Upsert")
	defer span.End()

	if person.ID == uuid.Nil {
		person.ID = uuid.New()
	}
	now := time.Now().UTC()
	person.CreatedAt = now
	person.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("people")
	sb.Cols("id", "linkedin_url", "full_name", "headline", "location", "current_company", "current_title", "created_at", "updated_at")
	sb.Values(person.ID, person.LinkedInURL, person.FullName, person.Headline, person.Location, person.CurrentCompany, person.CurrentTitle, person.CreatedAt, person.UpdatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (linkedin_url) DO UPDATE SET full_name = EXCLUDED.full_name, headline = EXCLUDED.headline, location = EXCLUDED.location, current_company = EXCLUDED.current_company, current_title = EXCLUDED.current_title, updated_at = EXCLUDED.updated_at RETURNING id, created_at"

	row := r.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&person.ID, &person.CreatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"linkedin_url": person.LinkedInURL}).Error("Failed to upsert person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert person")
	}

	return person, nil
}

// Get retrieves a person by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "linkedin_url", "full_name", "headline", "location", "current_company", "current_title", "created_at", "updated_at")
	sb.From("people")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get person")
	}

	return &person, nil
}

// SaveRawPayload stores the unmodified enrichment payload for a person.
// One payload per person per source, replays overwrite.
func (r *Repository) SaveRawPayload(ctx context.Context, payload *models.PersonRawPayload) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.SaveRawPayload")
	defer span.End()

	if payload.ID == uuid.Nil {
		payload.ID = uuid.New()
	}
	payload.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("person_raw_payloads")
	sb.Cols("id", "person_id", "source", "payload", "created_at")
	sb.Values(payload.ID, payload.PersonID, payload.Source, payload.Payload, payload.CreatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (person_id, source) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": payload.PersonID, "source": payload.Source}).Error("Failed to save raw payload")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save raw payload")
	}

	return nil
}
