package ads

import (
	"testing"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseIsWeighted(t *testing.T) {
	s := New(nil, nil, nil)
	ads := []domain.Ad{
		{ID: 1, Weight: 1, Status: domain.AdActive},
		{ID: 2, Weight: 3, Status: domain.AdActive},
		{ID: 3, Weight: 5, Status: domain.AdPaused},
	}

	picks := map[int]int64{0: 1, 1: 2, 2: 2, 3: 2}
	for n, want := range picks {
		s.pick = func(total int) int {
			require.Equal(t, 4, total)
			return n
		}
		got, ok := s.choose(ads)
		require.True(t, ok)
		assert.Equal(t, want, got.ID, "draw %d", n)
	}
}

func TestChooseSkipsAdsOutsideWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	s := New(nil, nil, nil)
	s.now = func() time.Time { return now }

	_, ok := s.choose([]domain.Ad{
		{ID: 1, Weight: 1, Status: domain.AdActive, StartsAt: &later},
		{ID: 2, Weight: 1, Status: domain.AdActive, EndsAt: &earlier},
	})
	assert.False(t, ok)

	_, ok = s.choose(nil)
	assert.False(t, ok)
}

func TestValidateAd(t *testing.T) {
	a := domain.Ad{ZoneID: 1, Title: " Spring sale ", TargetURL: "https://shop.example/spring"}
	require.NoError(t, validateAd(&a))
	assert.Equal(t, 1, a.Weight)
	assert.Equal(t, domain.AdActive, a.Status)
	assert.Equal(t, "Spring sale", a.Title)

	start := time.Now()
	end := start.Add(-time.Minute)
	for i, bad := range []domain.Ad{
		{Title: "x", TargetURL: "https://a.b"},
		{ZoneID: 1, TargetURL: "https://a.b"},
		{ZoneID: 1, Title: "x", TargetURL: "https://a.b", Weight: -1},
		{ZoneID: 1, Title: "x", TargetURL: "/local"},
		{ZoneID: 1, Title: "x", TargetURL: "https://a.b", Status: "running"},
		{ZoneID: 1, Title: "x", TargetURL: "https://a.b", StartsAt: &start, EndsAt: &end},
		{ZoneID: 1, Title: "x", TargetURL: "https://a.b", ImageURL: "data:image/png;base64,AAAA"},
	} {
		var ve *domain.ValidationError
		assert.ErrorAs(t, validateAd(&bad), &ve, "case %d", i)
	}
}
