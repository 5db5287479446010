package ingest

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lanternhq/overlap/pkg/kafka"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeople struct {
	upserted  *models.Person
	payloads  []*models.PersonRawPayload
	upsertErr error
}

func (f *fakePeople) Upsert(ctx context.Context, person *models.Person) (*models.Person, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	person.ID = uuid.New()
	f.upserted = person
	return person, nil
}

func (f *fakePeople) SaveRawPayload(ctx context.Context, payload *models.PersonRawPayload) error {
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeChildren struct {
	work      []models.WorkHistory
	education []models.EducationHistory
	certs     []models.Certification
	workErr   error
}

func (f *fakeChildren) ReplaceWorkHistory(ctx context.Context, personID uuid.UUID, rows []models.WorkHistory) (int, error) {
	if f.workErr != nil {
		return 0, f.workErr
	}
	f.work = rows
	return len(rows), nil
}

func (f *fakeChildren) ReplaceEducation(ctx context.Context, personID uuid.UUID, rows []models.EducationHistory) (int, error) {
	f.education = rows
	return len(rows), nil
}

func (f *fakeChildren) ReplaceCertifications(ctx context.Context, personID uuid.UUID, rows []models.Certification) (int, error) {
	f.certs = rows
	return len(rows), nil
}

type fakeProducer struct {
	events []*kafka.PersonEvent
	err    error
}

func (f *fakeProducer) PublishPersonEvent(ctx context.Context, event *kafka.PersonEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string {
	return &s
}

func TestIngestPerson(t *testing.T) {
	req := PersonRequest{
		Source:      "clay",
		LinkedInURL: "https://www.linkedin.com/in/jane-doe",
		FullName:    strPtr("Jane Doe"),
		WorkHistory: []WorkEntry{
			{CompanyName: strPtr("Acme"), CompanyDomain: strPtr("acme.com"), IsCurrent: true},
			{CompanyName: strPtr("Initech"), StartDate: strPtr("2019"), EndDate: strPtr("2021-06")},
		},
		Education: []EducationEntry{
			{SchoolName: strPtr("State University")},
		},
		RawPayload: map[string]any{"id": "abc123"},
	}

	t.Run("writes profile, payload and child rows", func(t *testing.T) {
		people := &fakePeople{}
		children := &fakeChildren{}
		producer := &fakeProducer{}

		processor := NewProcessor(people, children, producer, testLogger())
		result, err := processor.IngestPerson(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, people.upserted.ID, result.PersonID)
		assert.Equal(t, 2, result.WorkRows)
		assert.Equal(t, 1, result.EducationRows)
		assert.Equal(t, 0, result.CertRows)

		require.Len(t, people.payloads, 1)
		assert.Equal(t, "clay", people.payloads[0].Source)
		assert.Len(t, children.work, 2)
	})

	t.Run("publishes ingested event", func(t *testing.T) {
		people := &fakePeople{}
		producer := &fakeProducer{}

		processor := NewProcessor(people, &fakeChildren{}, producer, testLogger())
		_, err := processor.IngestPerson(context.Background(), req)
		require.NoError(t, err)

		require.Len(t, producer.events, 1)
		assert.Equal(t, "person.ingested", producer.events[0].EventType)
		assert.Equal(t, 2, producer.events[0].WorkRows)
	})

	t.Run("publish failure does not fail the ingest", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker unavailable")}

		processor := NewProcessor(&fakePeople{}, &fakeChildren{}, producer, testLogger())
		_, err := processor.IngestPerson(context.Background(), req)
		require.NoError(t, err)
	})

	t.Run("nil producer is allowed", func(t *testing.T) {
		processor := NewProcessor(&fakePeople{}, &fakeChildren{}, nil, testLogger())
		_, err := processor.IngestPerson(context.Background(), req)
		require.NoError(t, err)
	})

	t.Run("upsert failure aborts", func(t *testing.T) {
		people := &fakePeople{upsertErr: errors.New("db is down")}
		children := &fakeChildren{}

		processor := NewProcessor(people, children, nil, testLogger())
		_, err := processor.IngestPerson(context.Background(), req)
		require.Error(t, err)
		assert.Nil(t, children.work)
	})

	t.Run("flattens the latest experience onto the profile", func(t *testing.T) {
		people := &fakePeople{}
		flattened := req
		flattened.LatestExperience = &LatestExperience{
			Company: strPtr("Acme"),
			Title:   strPtr("Staff Engineer"),
		}

		processor := NewProcessor(people, &fakeChildren{}, nil, testLogger())
		_, err := processor.IngestPerson(context.Background(), flattened)
		require.NoError(t, err)

		require.NotNil(t, people.upserted.CurrentCompany)
		assert.Equal(t, "Acme", *people.upserted.CurrentCompany)
		require.NotNil(t, people.upserted.CurrentTitle)
		assert.Equal(t, "Staff Engineer", *people.upserted.CurrentTitle)
	})

	t.Run("child replace failure is partial success", func(t *testing.T) {
		children := &fakeChildren{workErr: errors.New("db is down")}

		processor := NewProcessor(&fakePeople{}, children, nil, testLogger())
		result, err := processor.IngestPerson(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 0, result.WorkRows)
		assert.Equal(t, 1, result.EducationRows)
	})
}

func TestHandleMessage(t *testing.T) {
	t.Run("ingests a parsed message", func(t *testing.T) {
		people := &fakePeople{}
		processor := NewProcessor(people, &fakeChildren{}, nil, testLogger())

		msg := &kafka.IncomingMessage{
			Ingest: &kafka.IngestMessage{
				Source:      "clay",
				LinkedInURL: "https://www.linkedin.com/in/jane-doe",
				Payload:     map[string]any{"id": "abc123"},
			},
		}

		require.NoError(t, processor.HandleMessage(context.Background(), msg))
		require.NotNil(t, people.upserted)
		assert.Equal(t, "https://www.linkedin.com/in/jane-doe", people.upserted.LinkedInURL)
	})

	t.Run("defaults the source", func(t *testing.T) {
		people := &fakePeople{}
		processor := NewProcessor(people, &fakeChildren{}, nil, testLogger())

		msg := &kafka.IncomingMessage{
			Ingest: &kafka.IngestMessage{LinkedInURL: "https://www.linkedin.com/in/jane-doe"},
		}

		require.NoError(t, processor.HandleMessage(context.Background(), msg))
		require.Len(t, people.payloads, 0)
	})

	t.Run("ignores unparsed messages", func(t *testing.T) {
		processor := NewProcessor(&fakePeople{}, &fakeChildren{}, nil, testLogger())
		require.NoError(t, processor.HandleMessage(context.Background(), &kafka.IncomingMessage{}))
	})
}
