package coverage

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
)

const maxWindow = 31 * 24 * time.Hour

type CoverageRequest struct {
	ShopID           string `json:"shop_id"`
	WorkTypeIDs      string `json:"work_type_ids"`
	From             string `json:"from"`
	To               string `json:"to"`
	IncludeVacancies bool   `json:"include_vacancies"`
	UseFact          bool   `json:"use_fact"`
}

func (r *CoverageRequest) Validate() (Query, error) {
	var errs validator.ValidationErrors
	q := Query{ShopID: r.ShopID, IncludeVacancies: r.IncludeVacancies, UseFact: r.UseFact}

	if !validator.IsValidUUID(r.ShopID) {
		errs.Add("shop_id", "shop_id must be a valid UUID")
	}
	for _, id := range strings.Split(r.WorkTypeIDs, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !validator.IsValidUUID(id) {
			errs.Add("work_type_ids", "work_type_ids must be comma separated UUIDs")
			break
		}
		q.WorkTypeIDs = append(q.WorkTypeIDs, id)
	}
	if len(q.WorkTypeIDs) == 0 {
		errs.Add("work_type_ids", "work_type_ids is required")
	}

	from, okFrom := validator.IsValidDateTime(r.From)
	if !okFrom {
		errs.Add("from", "from must be an RFC3339 timestamp")
	}
	to, okTo := validator.IsValidDateTime(r.To)
	if !okTo {
		errs.Add("to", "to must be an RFC3339 timestamp")
	}
	if okFrom && okTo {
		if !to.After(from) {
			errs.Add("to", "to must be after from")
		} else if to.Sub(from) > maxWindow {
			errs.Add("to", "window must not exceed 31 days")
		}
	}
	q.From, q.To = from, to

	if len(errs) > 0 {
		return Query{}, errs
	}
	return q, nil
}

type BucketResponse struct {
	Start    time.Time `json:"dttm"`
	Demand   float64   `json:"demand"`
	Coverage float64   `json:"coverage"`
	Missing  bool      `json:"missing,omitempty"`
}

type SeriesResponse struct {
	ShopID      string           `json:"shop_id"`
	StepMinutes int              `json:"step_minutes"`
	Buckets     []BucketResponse `json:"buckets"`
}

func NewSeriesResponse(s Series) SeriesResponse {
	out := SeriesResponse{
		ShopID:      s.ShopID,
		StepMinutes: int(s.Step / time.Minute),
		Buckets:     make([]BucketResponse, s.Len()),
	}
	for i := range s.Buckets {
		out.Buckets[i] = BucketResponse{
			Start:    s.Buckets[i],
			Demand:   s.Demand[i],
			Coverage: s.Coverage[i],
			Missing:  s.Missing[i],
		}
	}
	return out
}

type ForecastBucket struct {
	Dttm  string  `json:"dttm"`
	Value float64 `json:"value"`
}

type WriteForecastRequest struct {
	ShopID     string           `json:"shop_id"`
	WorkTypeID string           `json:"work_type_id"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	Buckets    []ForecastBucket `json:"buckets"`
}

func (r *WriteForecastRequest) Validate() (demand.Forecast, error) {
	var errs validator.ValidationErrors
	f := demand.Forecast{ShopID: r.ShopID, WorkTypeID: r.WorkTypeID}

	if !validator.IsValidUUID(r.ShopID) {
		errs.Add("shop_id", "shop_id must be a valid UUID")
	}
	if !validator.IsValidUUID(r.WorkTypeID) {
		errs.Add("work_type_id", "work_type_id must be a valid UUID")
	}
	var ok bool
	if f.From, ok = validator.IsValidDateTime(r.From); !ok {
		errs.Add("from", "from must be an RFC3339 timestamp")
	}
	if f.To, ok = validator.IsValidDateTime(r.To); !ok {
		errs.Add("to", "to must be an RFC3339 timestamp")
	}
	for _, b := range r.Buckets {
		start, ok := validator.IsValidDateTime(b.Dttm)
		if !ok {
			errs.Add("buckets", "bucket dttm must be an RFC3339 timestamp")
			break
		}
		if b.Value < 0 {
			errs.Add("buckets", "bucket value must not be negative")
			break
		}
		f.Buckets = append(f.Buckets, demand.Bucket{ShopID: r.ShopID, WorkTypeID: r.WorkTypeID, Start: start.UTC(), Value: b.Value})
	}

	if len(errs) > 0 {
		return demand.Forecast{}, errs
	}
	return f, nil
}
