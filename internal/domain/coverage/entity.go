package coverage

import "time"

// Query selects a (shop, work types) window. Coverage counts approved plans
// unless UseFact is set; open vacancies count only with IncludeVacancies.
type Query struct {
	ShopID           string
	WorkTypeIDs      []string
	From             time.Time
	To               time.Time
	IncludeVacancies bool
	UseFact          bool
}

// Series holds the aligned demand and coverage curves of a window.
// Missing[i] marks buckets that had no forecast value.
type Series struct {
	ShopID   string
	Step     time.Duration
	Buckets  []time.Time
	Demand   []float64
	Coverage []float64
	Missing  []bool
}

func (s Series) Len() int {
	return len(s.Buckets)
}

// Gap returns D[i] - S[i], treating a missing bucket as D=0, S=0.
func (s Series) Gap(i int) float64 {
	if s.Missing[i] {
		return 0
	}
	return s.Demand[i] - s.Coverage[i]
}

// BucketEnd returns the exclusive end of bucket i.
func (s Series) BucketEnd(i int) time.Time {
	return s.Buckets[i].Add(s.Step)
}

// IndexOf returns the bucket containing t, or -1.
func (s Series) IndexOf(t time.Time) int {
	if len(s.Buckets) == 0 || t.Before(s.Buckets[0]) {
		return -1
	}
	i := int(t.Sub(s.Buckets[0]) / s.Step)
	if i >= len(s.Buckets) {
		return -1
	}
	return i
}
