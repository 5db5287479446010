// Package ingest turns enrichment payloads into normalized rows.
package ingest

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lanternhq/overlap/pkg/database"
	"github.com/lanternhq/overlap/pkg/kafka"
	"github.com/lanternhq/overlap/pkg/metrics"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/tracing"
)

// PersonRequest is a person enrichment payload from any source.
type PersonRequest struct {
	Source           string               `json:"source" validate:"required"`
	LinkedInURL      string               `json:"linkedin_url" validate:"required"`
	FullName         *string              `json:"full_name"`
	Headline         *string              `json:"headline"`
	Location         *string              `json:"location"`
	LatestExperience *LatestExperience    `json:"latest_experience"`
	WorkHistory      []WorkEntry          `json:"work_history"`
	Education        []EducationEntry     `json:"education"`
	Certifications   []CertificationEntry `json:"certifications"`
	RawPayload       map[string]any       `json:"raw_payload"`
}

// LatestExperience is the payload's most recent role. It is flattened
// onto the person row so alumni listings can show the current employer
// without joining work history.
type LatestExperience struct {
	Company *string `json:"company"`
	Title   *string `json:"title"`
}

// WorkEntry is one employment stint in a person payload.
type WorkEntry struct {
	CompanyName   *string `json:"company_name"`
	CompanyDomain *string `json:"company_domain"`
	Title         *string `json:"title"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	IsCurrent     bool    `json:"is_current"`
}

// EducationEntry is one education entry in a person payload.
type EducationEntry struct {
	SchoolName   *string `json:"school_name"`
	Degree       *string `json:"degree"`
	FieldOfStudy *string `json:"field_of_study"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

// CertificationEntry is one certification in a person payload.
type CertificationEntry struct {
	Name      *string `json:"name"`
	Authority *string `json:"authority"`
	IssuedAt  *string `json:"issued_at"`
}

// PersonResult reports what an ingestion wrote.
type PersonResult struct {
	PersonID      uuid.UUID `json:"person_id"`
	WorkRows      int       `json:"work_rows"`
	EducationRows int       `json:"education_rows"`
	CertRows      int       `json:"cert_rows"`
}

type personStore interface {
	Upsert(ctx context.Context, person *models.Person) (*models.Person, error)
	SaveRawPayload(ctx context.Context, payload *models.PersonRawPayload) error
}

type childStore interface {
	ReplaceWorkHistory(ctx context.Context, personID uuid.UUID, rows []models.WorkHistory) (int, error)
	ReplaceEducation(ctx context.Context, personID uuid.UUID, rows []models.EducationHistory) (int, error)
	ReplaceCertifications(ctx context.Context, personID uuid.UUID, rows []models.Certification) (int, error)
}

// EventPublisher emits events about ingested people.
type EventPublisher interface {
	PublishPersonEvent(ctx context.Context, event *kafka.PersonEvent) error
}

// Processor coordinates person ingestion. The raw payload lands first so
// a failed flatten can be replayed, then the profile and child rows.
type Processor struct {
	people   personStore
	children childStore
	producer EventPublisher
	logger   ectologger.Logger
}

// NewProcessor creates a new ingestion processor. The producer may be
// nil when event emission is disabled.
func NewProcessor(people personStore, children childStore, producer EventPublisher, logger ectologger.Logger) *Processor {
	return &Processor{
		people:   people,
		children: children,
		producer: producer,
		logger:   logger,
	}
}

// IngestPerson upserts the person and replaces all child rows from the
// payload. Child replacement is delete then insert without a wrapping
// transaction, so a reader racing an ingest can see a partial profile.
func (p *Processor) IngestPerson(ctx context.Context, req PersonRequest) (*PersonResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Processor.IngestPerson")
	defer span.End()

	person := &models.Person{
		LinkedInURL: req.LinkedInURL,
		FullName:    req.FullName,
		Headline:    req.Headline,
		Location:    req.Location,
	}
	if req.LatestExperience != nil {
		person.CurrentCompany = req.LatestExperience.Company
		person.CurrentTitle = req.LatestExperience.Title
	}

	person, err := p.people.Upsert(ctx, person)
	if err != nil {
		metrics.PersonIngestsTotal.WithLabelValues(req.Source, "error").Inc()
		return nil, err
	}

	if req.RawPayload != nil {
		payload := &models.PersonRawPayload{
			PersonID: person.ID,
			Source:   req.Source,
			Payload:  database.JSONB[map[string]any]{Data: req.RawPayload},
		}
		if err := p.people.SaveRawPayload(ctx, payload); err != nil {
			metrics.PersonIngestsTotal.WithLabelValues(req.Source, "error").Inc()
			return nil, err
		}
	}

	result := &PersonResult{PersonID: person.ID}

	work := make([]models.WorkHistory, len(req.WorkHistory))
	for i, entry := range req.WorkHistory {
		work[i] = models.WorkHistory{
			CompanyName:   entry.CompanyName,
			CompanyDomain: entry.CompanyDomain,
			Title:         entry.Title,
			StartDate:     entry.StartDate,
			EndDate:       entry.EndDate,
			IsCurrent:     entry.IsCurrent,
		}
	}
	// Child-row writes are best effort: the profile row is already
	// durable, a failed category is logged and left at zero rows.
	if result.WorkRows, err = p.children.ReplaceWorkHistory(ctx, person.ID, work); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": person.ID}).Warn("Failed to replace work history")
	}
	metrics.ChildRowsWritten.WithLabelValues("work_history").Add(float64(result.WorkRows))

	education := make([]models.EducationHistory, len(req.Education))
	for i, entry := range req.Education {
		education[i] = models.EducationHistory{
			SchoolName:   entry.SchoolName,
			Degree:       entry.Degree,
			FieldOfStudy: entry.FieldOfStudy,
			StartDate:    entry.StartDate,
			EndDate:      entry.EndDate,
		}
	}
	if result.EducationRows, err = p.children.ReplaceEducation(ctx, person.ID, education); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": person.ID}).Warn("Failed to replace education history")
	}
	metrics.ChildRowsWritten.WithLabelValues("education_history").Add(float64(result.EducationRows))

	certs := make([]models.Certification, len(req.Certifications))
	for i, entry := range req.Certifications {
		certs[i] = models.Certification{
			Name:      entry.Name,
			Authority: entry.Authority,
			IssuedAt:  entry.IssuedAt,
		}
	}
	if result.CertRows, err = p.children.ReplaceCertifications(ctx, person.ID, certs); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": person.ID}).Warn("Failed to replace certifications")
	}
	metrics.ChildRowsWritten.WithLabelValues("certifications").Add(float64(result.CertRows))

	metrics.PersonIngestsTotal.WithLabelValues(req.Source, "success").Inc()

	if p.producer != nil {
		event := &kafka.PersonEvent{
			EventType:   "person.ingested",
			PersonID:    person.ID.String(),
			LinkedInURL: person.LinkedInURL,
			Source:      req.Source,
			WorkRows:    result.WorkRows,
		}
		// Event emission is best effort, the rows are already durable
		if err := p.producer.PublishPersonEvent(ctx, event); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to publish person event")
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"person_id": person.ID,
		"source":    req.Source,
		"work_rows": result.WorkRows,
	}).Info("Ingested person")

	return result, nil
}

// HandleMessage adapts the processor to the Kafka consumer
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	if msg.Ingest == nil {
		return nil
	}

	req := PersonRequest{
		Source:      msg.Ingest.Source,
		LinkedInURL: msg.Ingest.LinkedInURL,
		RawPayload:  msg.Ingest.Payload,
	}
	if req.Source == "" {
		req.Source = "kafka"
	}

	_, err := p.IngestPerson(ctx, req)
	return err
}
