// Package ads manages ad zones and creatives and serves them by weight.
package ads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/metrics"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
)

var (
	ErrZoneNotFound = errors.New("ad zone not found")
	ErrAdNotFound   = errors.New("ad not found")
	ErrZoneExists   = errors.New("ad zone already exists")
	ErrNoAd         = errors.New("no ad to serve")
)

var zoneKeyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type Service struct {
	store    *postgresrepo.Store
	counters *redisrepo.Counters
	logger   *slog.Logger
	now      func() time.Time
	pick     func(n int) int
}

func New(store *postgresrepo.Store, counters *redisrepo.Counters, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		counters: counters,
		logger:   logger,
		now:      time.Now,
		pick:     rand.IntN,
	}
}

func (s *Service) CreateZone(ctx context.Context, z domain.AdZone) (int64, error) {
	const op = "service.ads.CreateZone"

	z.Key = strings.TrimSpace(z.Key)
	z.Name = strings.TrimSpace(z.Name)

	switch {
	case !zoneKeyRe.MatchString(z.Key):
		return 0, fmt.Errorf("%s:%w", op, domain.Invalid("key", "must be lowercase letters, digits, - or _"))
	case z.Name == "":
		return 0, fmt.Errorf("%s:%w", op, domain.Invalid("name", "is required"))
	case z.Width < 0 || z.Height < 0:
		return 0, fmt.Errorf("%s:%w", op, domain.Invalid("size", "must not be negative"))
	}

	id, err := s.store.Ads().CreateZone(ctx, z)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s:%w", op, ErrZoneExists)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

func (s *Service) ListZones(ctx context.Context) ([]domain.AdZone, error) {
	const op = "service.ads.ListZones"

	out, err := s.store.Ads().ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) CreateAd(ctx context.Context, a domain.Ad) (int64, error) {
	const op = "service.ads.CreateAd"

	if err := validateAd(&a); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	id, err := s.store.Ads().CreateAd(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return id, nil
}

func (s *Service) UpdateAd(ctx context.Context, a domain.Ad) error {
	const op = "service.ads.UpdateAd"

	if err := validateAd(&a); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Ads().UpdateAd(ctx, a); err != nil {
		return fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return nil
}

func (s *Service) SetAdStatus(ctx context.Context, id int64, status domain.AdStatus) error {
	const op = "service.ads.SetAdStatus"

	if status != domain.AdActive && status != domain.AdPaused {
		return fmt.Errorf("%s:%w", op, domain.Invalid("status", "must be active or paused"))
	}

	if err := s.store.Ads().SetAdStatus(ctx, id, status); err != nil {
		return fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return nil
}

func (s *Service) DeleteAd(ctx context.Context, id int64) error {
	const op = "service.ads.DeleteAd"

	if err := s.store.Ads().DeleteAd(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return nil
}

func (s *Service) ListAds(ctx context.Context, zoneID int64) ([]domain.Ad, error) {
	const op = "service.ads.ListAds"

	out, err := s.store.Ads().ListAds(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Serve picks one running ad of a zone, weighted by Ad.Weight, and counts
// an impression for it.
//
// Returns:
//   - error: ads.ErrZoneNotFound if the zone does not exist.
//   - error: ads.ErrNoAd if nothing is running in the zone.
func (s *Service) Serve(ctx context.Context, zoneKey string) (*domain.Ad, error) {
	const op = "service.ads.Serve"

	candidates, err := s.store.Ads().ListRunningAds(ctx, zoneKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrZoneNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	ad, ok := s.choose(candidates)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrNoAd)
	}

	if err := s.counters.IncrAdImpression(ctx, ad.ID); err != nil {
		s.logger.Warn("count ad impression", "ad_id", ad.ID, "error", err)
	}
	metrics.AdEvents.WithLabelValues("impression").Inc()

	return &ad, nil
}

// Click counts a click and returns where to send the visitor.
//
// Returns:
//   - error: ads.ErrAdNotFound if the ad does not exist.
func (s *Service) Click(ctx context.Context, id int64) (string, error) {
	const op = "service.ads.Click"

	ad, err := s.store.Ads().GetAd(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	if err := s.counters.IncrAdClick(ctx, ad.ID); err != nil {
		s.logger.Warn("count ad click", "ad_id", ad.ID, "error", err)
	}
	metrics.AdEvents.WithLabelValues("click").Inc()

	return ad.TargetURL, nil
}

// choose draws one running ad with probability proportional to its weight.
func (s *Service) choose(ads []domain.Ad) (domain.Ad, bool) {
	now := s.now()

	total := 0
	running := ads[:0:0]
	for _, a := range ads {
		if a.Running(now) {
			running = append(running, a)
			total += a.Weight
		}
	}

	if total == 0 {
		return domain.Ad{}, false
	}

	n := s.pick(total)
	for _, a := range running {
		if n < a.Weight {
			return a, true
		}
		n -= a.Weight
	}

	return running[len(running)-1], true
}

func validateAd(a *domain.Ad) error {
	a.Title = strings.TrimSpace(a.Title)

	if a.Status == "" {
		a.Status = domain.AdActive
	}
	if a.Weight == 0 {
		a.Weight = 1
	}

	switch {
	case a.ZoneID <= 0:
		return domain.Invalid("zone_id", "is required")
	case a.Title == "":
		return domain.Invalid("title", "is required")
	case a.Weight < 1:
		return domain.Invalid("weight", "must be at least 1")
	case a.Status != domain.AdActive && a.Status != domain.AdPaused:
		return domain.Invalid("status", "must be active or paused")
	case a.StartsAt != nil && a.EndsAt != nil && !a.EndsAt.After(*a.StartsAt):
		return domain.Invalid("ends_at", "must be after starts_at")
	case !httpURL(a.TargetURL):
		return domain.Invalid("target_url", "must be an http(s) URL")
	case a.ImageURL != "" && !httpURL(a.ImageURL) && !strings.HasPrefix(a.ImageURL, "/media/"):
		return domain.Invalid("image_url", "must be an http(s) URL or a /media/ path")
	}

	return nil
}

func httpURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrAdNotFound
	case errors.Is(err, repository.ErrReferenceMissing):
		return ErrZoneNotFound
	}
	return err
}
