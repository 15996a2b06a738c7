package vacancy

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) time.Time {
	return time.Date(2024, 3, 1, h, m, 0, 0, time.UTC)
}

// series builds a 30 minute series over [08:00, 22:00) where every bucket
// has D=S=1 unless overridden by set.
func series(set func(b time.Time) (d, s float64, missing bool)) coverage.Series {
	out := coverage.Series{ShopID: "shop-1", Step: 30 * time.Minute}
	for b := hm(8, 0); b.Before(hm(22, 0)); b = b.Add(30 * time.Minute) {
		d, s, missing := 1.0, 1.0, false
		if set != nil {
			d, s, missing = set(b)
		}
		out.Buckets = append(out.Buckets, b)
		out.Demand = append(out.Demand, d)
		out.Coverage = append(out.Coverage, s)
		out.Missing = append(out.Missing, missing)
	}
	return out
}

func within(from, to time.Time, d, s float64) func(time.Time) (float64, float64, bool) {
	return func(b time.Time) (float64, float64, bool) {
		if !b.Before(from) && b.Before(to) {
			return d, s, false
		}
		return 1, 1, false
	}
}

func params() PlanParams {
	return PlanParams{
		CreateThreshold: 0.4,
		CancelThreshold: 0.5,
		MinShift:        4 * time.Hour,
		From:            hm(0, 0),
		To:              hm(23, 59),
	}
}

func openVacancy(id string, start, end time.Time) vacancy.Vacancy {
	return vacancy.Vacancy{ID: id, ShopID: "shop-1", WorkTypeID: "cash", Start: start, End: end, State: vacancy.StateOpen}
}

func TestPlan_ShortageCreatesOneVacancy(t *testing.T) {
	s := series(within(hm(12, 0), hm(18, 0), 3, 1))

	actions := Plan(s, nil, params())
	require.Len(t, actions, 1)
	assert.Equal(t, vacancy.ActionCreate, actions[0].Kind)
	assert.Equal(t, hm(12, 0), actions[0].Start)
	assert.Equal(t, hm(18, 0), actions[0].End)

	// Next cycle with the vacancy outstanding and the same state.
	existing := []vacancy.Vacancy{openVacancy("v1", hm(12, 0), hm(18, 0))}
	assert.Empty(t, Plan(s, existing, params()))
}

func TestPlan_SurplusCancelsVacancy(t *testing.T) {
	s := series(within(hm(12, 0), hm(17, 0), 0, 1))
	existing := []vacancy.Vacancy{openVacancy("v1", hm(12, 0), hm(17, 0))}

	actions := Plan(s, existing, params())
	require.Len(t, actions, 1)
	assert.Equal(t, vacancy.ActionCancel, actions[0].Kind)
	assert.Equal(t, "v1", actions[0].VacancyID)
}

func TestPlan_PartialSurplusKeepsVacancy(t *testing.T) {
	// Surplus only over the first half of the vacancy.
	s := series(within(hm(12, 0), hm(14, 0), 0, 1))
	existing := []vacancy.Vacancy{openVacancy("v1", hm(12, 0), hm(17, 0))}

	assert.Empty(t, Plan(s, existing, params()))
}

func TestPlan_MissingBucketsNeverCancel(t *testing.T) {
	s := series(func(b time.Time) (float64, float64, bool) {
		return 0, 0, true
	})
	existing := []vacancy.Vacancy{openVacancy("v1", hm(12, 0), hm(17, 0))}

	assert.Empty(t, Plan(s, existing, params()))
}

func TestPlan_ShortFragment(t *testing.T) {
	tests := []struct {
		name     string
		shortage [2]time.Time
		existing []vacancy.Vacancy
		want     []vacancy.Action
	}{
		{
			name:     "extends adjacent vacancy",
			shortage: [2]time.Time{hm(12, 0), hm(19, 0)},
			existing: []vacancy.Vacancy{openVacancy("v1", hm(12, 0), hm(17, 0))},
			want: []vacancy.Action{
				{Kind: vacancy.ActionExtend, VacancyID: "v1", Start: hm(12, 0), End: hm(19, 0)},
			},
		},
		{
			name:     "extends across a small gap",
			shortage: [2]time.Time{hm(18, 0), hm(19, 0)},
			existing: []vacancy.Vacancy{openVacancy("v1", hm(12, 0), hm(17, 0))},
			want: []vacancy.Action{
				{Kind: vacancy.ActionExtend, VacancyID: "v1", Start: hm(12, 0), End: hm(19, 0)},
			},
		},
		{
			name:     "drops fragment far from any vacancy",
			shortage: [2]time.Time{hm(20, 0), hm(21, 0)},
			existing: []vacancy.Vacancy{openVacancy("v1", hm(8, 0), hm(12, 0))},
			want:     nil,
		},
		{
			name:     "drops fragment without vacancies",
			shortage: [2]time.Time{hm(12, 0), hm(14, 0)},
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := series(within(tt.shortage[0], tt.shortage[1], 2, 1))
			assert.Equal(t, tt.want, Plan(s, tt.existing, params()))
		})
	}
}

func TestPlan_CancelAndCreateInOneCycle(t *testing.T) {
	s := series(func(b time.Time) (float64, float64, bool) {
		switch {
		case !b.Before(hm(8, 0)) && b.Before(hm(10, 0)):
			return 0, 2, false
		case !b.Before(hm(14, 0)) && b.Before(hm(18, 0)):
			return 3, 1, false
		}
		return 1, 1, false
	})
	existing := []vacancy.Vacancy{openVacancy("v1", hm(8, 0), hm(10, 0))}

	actions := Plan(s, existing, params())
	require.Len(t, actions, 2)
	assert.Equal(t, vacancy.ActionCancel, actions[0].Kind)
	assert.Equal(t, vacancy.ActionCreate, actions[1].Kind)
	assert.Equal(t, hm(14, 0), actions[1].Start)
	assert.Equal(t, hm(18, 0), actions[1].End)
}

func TestPlan_HorizonBoundsShortage(t *testing.T) {
	s := series(within(hm(8, 0), hm(20, 0), 3, 1))
	p := params()
	p.From, p.To = hm(12, 0), hm(16, 0)

	actions := Plan(s, nil, p)
	require.Len(t, actions, 1)
	assert.Equal(t, hm(12, 0), actions[0].Start)
	assert.Equal(t, hm(16, 0), actions[0].End)
}

func TestInSurplus(t *testing.T) {
	s := series(within(hm(12, 0), hm(13, 0), 0, 1))
	assert.True(t, inSurplus(s, hm(12, 0), hm(13, 0), 0.5))
	assert.True(t, inSurplus(s, hm(12, 10), hm(12, 50), 0.5))
	assert.False(t, inSurplus(s, hm(12, 0), hm(13, 30), 0.5))
	assert.False(t, inSurplus(s, hm(23, 0), hm(23, 30), 0.5), "no buckets in range")
}
