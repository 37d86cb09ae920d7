package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type AdRepo struct {
	conn
}

func (r *AdRepo) With(db DB) *AdRepo {
	return &AdRepo{r.conn.with(db)}
}

func (r *AdRepo) CreateZone(ctx context.Context, z domain.AdZone) (int64, error) {
	const op = "postgresrepo.AdRepo.CreateZone"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO ad_zones(key, name, width, height)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		z.Key, z.Name, z.Width, z.Height,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *AdRepo) ListZones(ctx context.Context) ([]domain.AdZone, error) {
	const op = "postgresrepo.AdRepo.ListZones"

	rows, err := r.handle().Query(ctx, `SELECT id, key, name, width, height FROM ad_zones ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AdZone, error) {
		var z domain.AdZone
		err := row.Scan(&z.ID, &z.Key, &z.Name, &z.Width, &z.Height)
		return z, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

const adColumns = `a.id, a.zone_id, a.title, a.image_url, a.target_url, a.weight, a.starts_at,
	a.ends_at, a.status, a.impressions, a.clicks`

func scanAd(row pgx.Row) (domain.Ad, error) {
	var a domain.Ad
	err := row.Scan(
		&a.ID,
		&a.ZoneID,
		&a.Title,
		&a.ImageURL,
		&a.TargetURL,
		&a.Weight,
		&a.StartsAt,
		&a.EndsAt,
		&a.Status,
		&a.Impressions,
		&a.Clicks,
	)
	return a, err
}

func (r *AdRepo) CreateAd(ctx context.Context, a domain.Ad) (int64, error) {
	const op = "postgresrepo.AdRepo.CreateAd"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO ads(zone_id, title, image_url, target_url, weight, starts_at, ends_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		a.ZoneID, a.Title, a.ImageURL, a.TargetURL, a.Weight, a.StartsAt, a.EndsAt, a.Status,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *AdRepo) UpdateAd(ctx context.Context, a domain.Ad) error {
	const op = "postgresrepo.AdRepo.UpdateAd"

	tag, err := r.handle().Exec(ctx,
		`UPDATE ads
		 SET zone_id = $2, title = $3, image_url = $4, target_url = $5, weight = $6,
		     starts_at = $7, ends_at = $8
		 WHERE id = $1`,
		a.ID, a.ZoneID, a.Title, a.ImageURL, a.TargetURL, a.Weight, a.StartsAt, a.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *AdRepo) SetAdStatus(ctx context.Context, id int64, status domain.AdStatus) error {
	const op = "postgresrepo.AdRepo.SetAdStatus"

	tag, err := r.handle().Exec(ctx, `UPDATE ads SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *AdRepo) DeleteAd(ctx context.Context, id int64) error {
	const op = "postgresrepo.AdRepo.DeleteAd"

	tag, err := r.handle().Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *AdRepo) GetAd(ctx context.Context, id int64) (*domain.Ad, error) {
	const op = "postgresrepo.AdRepo.GetAd"

	a, err := scanAd(r.handle().QueryRow(ctx, `SELECT `+adColumns+` FROM ads a WHERE a.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &a, nil
}

// ListAds lists every ad of a zone; zoneID 0 lists all zones.
func (r *AdRepo) ListAds(ctx context.Context, zoneID int64) ([]domain.Ad, error) {
	const op = "postgresrepo.AdRepo.ListAds"

	rows, err := r.handle().Query(ctx,
		`SELECT `+adColumns+`
		 FROM ads a
		 WHERE $1 = 0 OR a.zone_id = $1
		 ORDER BY a.zone_id, a.id`,
		zoneID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return collectAds(op, rows)
}

// ListRunningAds lists the active ads of a zone whose window contains now.
//
// Returns:
//   - error: repository.ErrNotFound if the zone does not exist.
func (r *AdRepo) ListRunningAds(ctx context.Context, zoneKey string) ([]domain.Ad, error) {
	const op = "postgresrepo.AdRepo.ListRunningAds"

	db := r.handle()

	var zoneID int64
	if err := db.QueryRow(ctx, `SELECT id FROM ad_zones WHERE key = $1`, zoneKey).Scan(&zoneID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT `+adColumns+`
		 FROM ads a
		 WHERE a.zone_id = $1
		   AND a.status = 'active'
		   AND (a.starts_at IS NULL OR a.starts_at <= now())
		   AND (a.ends_at IS NULL OR a.ends_at > now())
		 ORDER BY a.id`,
		zoneID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return collectAds(op, rows)
}

func collectAds(op string, rows pgx.Rows) ([]domain.Ad, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Ad, error) {
		return scanAd(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// AddCounters adds flushed impression and click deltas. Ads deleted since
// the counts were taken are skipped.
func (r *AdRepo) AddCounters(ctx context.Context, impressions, clicks map[int64]int64) error {
	const op = "postgresrepo.AdRepo.AddCounters"

	batch := &pgx.Batch{}
	for id, n := range impressions {
		batch.Queue(`UPDATE ads SET impressions = impressions + $2 WHERE id = $1`, id, n)
	}
	for id, n := range clicks {
		batch.Queue(`UPDATE ads SET clicks = clicks + $2 WHERE id = $1`, id, n)
	}

	if batch.Len() == 0 {
		return nil
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}
