package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type AnalyticsRepo struct {
	conn
}

func (r *AnalyticsRepo) With(db DB) *AnalyticsRepo {
	return &AnalyticsRepo{r.conn.with(db)}
}

// AddEventViews upserts per-day view deltas. Views of deleted events are
// dropped.
func (r *AnalyticsRepo) AddEventViews(ctx context.Context, views []domain.DailyViews) error {
	const op = "postgresrepo.AnalyticsRepo.AddEventViews"

	if len(views) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, v := range views {
		batch.Queue(
			`INSERT INTO event_daily_stats(event_id, day, views)
			 SELECT $1, $2, $3
			 WHERE EXISTS (SELECT 1 FROM events WHERE id = $1)
			 ON CONFLICT (event_id, day) DO UPDATE
			 SET views = event_daily_stats.views + EXCLUDED.views`,
			v.EventID, v.Day, v.Views,
		)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// EventReport aggregates views, confirmed sales and check-ins of an event.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *AnalyticsRepo) EventReport(ctx context.Context, eventID int64) (*domain.EventReport, error) {
	const op = "postgresrepo.AnalyticsRepo.EventReport"

	db := r.handle()

	rep := domain.EventReport{EventID: eventID, GeneratedAt: time.Now().UTC()}

	if err := db.QueryRow(ctx,
		`SELECT
		     (SELECT coalesce(sum(views), 0) FROM event_daily_stats WHERE event_id = e.id),
		     (SELECT count(*) FROM orders WHERE event_id = e.id AND status = 'confirmed'),
		     (SELECT coalesce(sum(subtotal_cents), 0) FROM orders WHERE event_id = e.id AND status = 'confirmed'),
		     (SELECT coalesce(sum(fee_cents), 0) FROM orders WHERE event_id = e.id AND status = 'confirmed'),
		     (SELECT count(*) FROM tickets WHERE event_id = e.id AND status = 'valid'),
		     (SELECT count(*) FROM tickets WHERE event_id = e.id AND checked_in_at IS NOT NULL)
		 FROM events e
		 WHERE e.id = $1`,
		eventID,
	).Scan(
		&rep.Views,
		&rep.Orders,
		&rep.GrossCents,
		&rep.FeeCents,
		&rep.TicketsSold,
		&rep.CheckedIn,
	); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT t.id, t.name, t.sold, t.capacity,
		        coalesce((
		            SELECT sum(oi.quantity * oi.unit_price_cents)
		            FROM order_items oi
		            JOIN orders o ON o.id = oi.order_id
		            WHERE oi.ticket_type_id = t.id AND o.status = 'confirmed'
		        ), 0)
		 FROM ticket_types t
		 WHERE t.event_id = $1
		 ORDER BY t.id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rep.TicketTypes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketTypeReport, error) {
		var t domain.TicketTypeReport
		err := row.Scan(&t.TicketTypeID, &t.Name, &t.Sold, &t.Capacity, &t.RevenueCents)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rep.Conversion = domain.Conversion(rep.Orders, rep.Views)

	return &rep, nil
}

// NetworkGrowth counts signups in [from, to) and the referrers behind them.
func (r *AnalyticsRepo) NetworkGrowth(ctx context.Context, from, to time.Time, top int) (*domain.NetworkGrowth, error) {
	const op = "postgresrepo.AnalyticsRepo.NetworkGrowth"

	db := r.handle()

	g := domain.NetworkGrowth{From: from, To: to}

	if err := db.QueryRow(ctx,
		`SELECT
		     count(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
		     count(*) FILTER (WHERE created_at >= $1 AND created_at < $2 AND referred_by IS NOT NULL),
		     count(*) FILTER (WHERE created_at < $1)
		 FROM profiles`,
		from, to,
	).Scan(&g.Signups, &g.ReferredSignups, &g.UsersAtStart); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT r.id, r.referral_code, count(*) AS referrals
		 FROM profiles p
		 JOIN profiles r ON r.id = p.referred_by
		 WHERE p.created_at >= $1 AND p.created_at < $2
		 GROUP BY r.id, r.referral_code
		 ORDER BY referrals DESC, r.id
		 LIMIT $3`,
		from, to, top,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	g.TopReferrers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Referrer, error) {
		var ref domain.Referrer
		err := row.Scan(&ref.ProfileID, &ref.ReferralCode, &ref.Referrals)
		return ref, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	g.ViralCoeff = domain.ViralCoefficient(g.ReferredSignups, g.UsersAtStart)

	return &g, nil
}
