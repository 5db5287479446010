package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/tracing"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Projector mirrors company to customer overlap edges into the graph so
// multi-hop questions (shared customers, alumni paths) stay cheap. The
// projection is derived data and is rebuilt after every counts refresh.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a new graph projector
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// ProjectOverlaps upserts one OVERLAPS edge per customer with alumni.
// Customers whose count dropped to zero get their edge removed.
func (p *Projector) ProjectOverlaps(ctx context.Context, companyID string, companyName string, customers []models.CustomerOverlap) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectOverlaps")
	defer span.End()

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (c:Company {id: $companyID})
			SET c.name = $companyName
		`, map[string]any{
			"companyID":   companyID,
			"companyName": companyName,
		}); err != nil {
			return nil, err
		}

		for _, customer := range customers {
			if customer.AlumniCount == 0 {
				if _, err := tx.Run(ctx, `
					MATCH (:Company {id: $companyID})-[r:OVERLAPS]->(:Customer {key: $customerKey})
					DELETE r
				`, map[string]any{
					"companyID":   companyID,
					"customerKey": customer.CustomerKey,
				}); err != nil {
					return nil, err
				}
				continue
			}

			if _, err := tx.Run(ctx, `
				MERGE (cu:Customer {key: $customerKey})
				SET cu.name = $customerName
				WITH cu
				MATCH (c:Company {id: $companyID})
				MERGE (c)-[r:OVERLAPS]->(cu)
				SET r.alumni_count = $alumniCount
			`, map[string]any{
				"companyID":    companyID,
				"customerKey":  customer.CustomerKey,
				"customerName": customer.CustomerName,
				"alumniCount":  customer.AlumniCount,
			}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID}).Error("Failed to project overlaps")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"company_id": companyID,
		"customers":  len(customers),
	}).Debug("Projected overlap edges")
	return nil
}
