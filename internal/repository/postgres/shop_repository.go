package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
)

type shopRepository struct {
	db *DB
}

func NewShopRepository(db *DB) repository.ShopRepository {
	return &shopRepository{db: db}
}

// ST_MakePoint takes lon before lat.
const nearestShopQuery = `
	SELECT
		shop_id,
		shop_name,
		category,
		ST_Distance(
			geom::geography,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		) AS distance
	FROM shops
	ORDER BY distance
	LIMIT 1
`

func (r *shopRepository) FindNearest(ctx context.Context, lat, lon float64) (*domain.Shop, error) {
	var row struct {
		ShopID   int     `db:"shop_id"`
		ShopName string  `db:"shop_name"`
		Category string  `db:"category"`
		Distance float64 `db:"distance"`
	}

	err := r.db.GetContext(ctx, &row, nearestShopQuery, lon, lat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest shop: %w", err)
	}

	return &domain.Shop{
		ShopID:   row.ShopID,
		ShopName: row.ShopName,
		Category: row.Category,
		Distance: row.Distance,
	}, nil
}
