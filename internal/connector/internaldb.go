// internal/connector/internaldb.go
package connector

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "hempex-matching/internal/common/errors"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/models"
)

const internalQueryLimit = 100

// InternalDB is the marketplace's own listings database adapter. It is the
// default connector when a caller names no sources.
type InternalDB struct {
	db     *sql.DB
	logger logger.Logger
}

func NewInternalDB(db *sql.DB, log logger.Logger) *InternalDB {
	return &InternalDB{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"connector": models.SourceInternal}),
	}
}

func (c *InternalDB) Name() string { return models.SourceInternal }

// FetchAndNormalize queries active listings matching the criteria and maps
// rows to candidates. The token is unused for the internal source.
func (c *InternalDB) FetchAndNormalize(ctx context.Context, _ string, criteria models.SearchCriteria) ([]models.Candidate, error) {
	query := `
		SELECT id, listing_type, commodity, quantity, unit, price_per_unit, currency,
		       location, description, quality_specs, social_impact_score,
		       counterparty_id, counterparty_name, created_at
		FROM listings
		WHERE status = 'active'`

	args := []interface{}{}
	idx := 1

	if criteria.Commodity != "" {
		query += fmt.Sprintf(" AND LOWER(commodity) = LOWER($%d)", idx)
		args = append(args, criteria.Commodity)
		idx++
	}
	if criteria.Region != "" {
		query += fmt.Sprintf(" AND location ILIKE $%d", idx)
		args = append(args, "%"+criteria.Region+"%")
		idx++
	}
	if criteria.PriceMin != nil {
		query += fmt.Sprintf(" AND price_per_unit >= $%d", idx)
		args = append(args, *criteria.PriceMin)
		idx++
	}
	if criteria.PriceMax != nil {
		query += fmt.Sprintf(" AND price_per_unit <= $%d", idx)
		args = append(args, *criteria.PriceMax)
		idx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", internalQueryLimit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(models.SourceInternal, err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var (
			cand         models.Candidate
			listingType  sql.NullString
			unit         sql.NullString
			currency     sql.NullString
			description  sql.NullString
			qualitySpecs sql.NullString
			impact       sql.NullFloat64
			cpID         sql.NullString
			cpName       sql.NullString
			createdAt    sql.NullTime
		)
		if err := rows.Scan(
			&cand.ID, &listingType, &cand.Commodity, &cand.Quantity, &unit,
			&cand.PricePerUnit, &currency, &cand.Location, &description,
			&qualitySpecs, &impact, &cpID, &cpName, &createdAt,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(models.SourceInternal, err)
		}

		cand.ListingType = listingType.String
		cand.Unit = unit.String
		cand.Currency = currency.String
		cand.Description = description.String
		cand.QualitySpecs = qualitySpecs.String
		cand.CounterpartyID = cpID.String
		cand.CounterpartyName = cpName.String
		if impact.Valid {
			v := impact.Float64
			cand.SocialImpactScore = &v
		}
		if createdAt.Valid {
			t := createdAt.Time.UTC()
			cand.CreatedAt = &t
		}
		cand.Source = models.SourceInternal

		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(models.SourceInternal, err)
	}

	c.logger.Debug("listings fetched", map[string]interface{}{
		"count":     len(candidates),
		"commodity": criteria.Commodity,
	})

	return candidates, nil
}
