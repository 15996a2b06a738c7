package tick

import (
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
)

// CreateTickRequest is the inbound tick payload.
type CreateTickRequest struct {
	EmployeeID *string  `json:"employee_id"`
	ShopCode   string   `json:"shop_code"`
	Type       string   `json:"type"`
	Kind       string   `json:"kind"`
	Dttm       *string  `json:"dttm"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Source     string   `json:"source"`
	ExternalID *string  `json:"-"`

	Photo       multipart.File        `json:"-"`
	PhotoHeader *multipart.FileHeader `json:"-"`
	// PhotoBytes is set by non-multipart callers such as the URV poller.
	PhotoBytes []byte `json:"-"`

	ResolvedKind Kind `json:"-"`
}

var allowedPhotoExts = []string{".jpg", ".jpeg", ".png"}

const maxPhotoSize = 10 << 20

func (r *CreateTickRequest) Validate() error {
	var errs validator.ValidationErrors

	switch {
	case r.Type != "":
		k, ok := KindFromLetter(strings.ToUpper(r.Type))
		if !ok {
			errs.Add("type", "type must be one of C, L, S, E, N")
		}
		r.ResolvedKind = k
		if r.Kind != "" && Kind(r.Kind) != k {
			errs.Add("kind", "kind does not agree with type")
		}
	case r.Kind != "":
		r.ResolvedKind = Kind(r.Kind)
		if !r.ResolvedKind.Valid() {
			errs.Add("kind", "kind must be one of arrival, departure, break_start, break_end, untyped")
		}
	default:
		errs.Add("type", "type is required")
	}

	if r.EmployeeID != nil && !validator.IsValidUUID(*r.EmployeeID) {
		errs.Add("employee_id", "employee_id must be a valid UUID")
	}
	if r.ShopCode != "" && !validator.IsValidShopCode(r.ShopCode) {
		errs.Add("shop_code", "shop_code is malformed")
	}
	if r.Dttm != nil && validator.IsEmpty(*r.Dttm) {
		errs.Add("dttm", "dttm must not be blank")
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		errs.Add("lat", "lat and lon must be given together")
	}
	if r.Lat != nil && !validator.IsValidLatitude(*r.Lat) {
		errs.Add("lat", "lat must be between -90 and 90")
	}
	if r.Lon != nil && !validator.IsValidLongitude(*r.Lon) {
		errs.Add("lon", "lon must be between -180 and 180")
	}
	if r.Source != "" && !Source(r.Source).Valid() {
		errs.Add("source", "source must be one of terminal, mobile, ip_bound, offline_manual")
	}

	if r.PhotoHeader != nil {
		ext := strings.ToLower(filepath.Ext(r.PhotoHeader.Filename))
		if !validator.IsInSlice(ext, allowedPhotoExts) {
			errs.Add("photo", "invalid file type: only jpg, jpeg, png allowed")
		} else if r.PhotoHeader.Size > maxPhotoSize {
			errs.Add("photo", "photo size must not exceed 10MB")
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// HasPhoto reports whether the request carries an image for verification.
func (r *CreateTickRequest) HasPhoto() bool {
	return r.PhotoHeader != nil || len(r.PhotoBytes) > 0
}

type TickResponse struct {
	ID              string         `json:"id"`
	EmployeeID      string         `json:"employee_id"`
	ShopID          string         `json:"shop_id"`
	Dttm            time.Time      `json:"dttm"`
	Kind            Kind           `json:"kind"`
	Lateness        *int64         `json:"lateness"`
	Verified        bool           `json:"verified"`
	BiometricsCheck bool           `json:"biometrics_check"`
	Match           Classification `json:"match"`
	PlanWorkerDayID *string        `json:"plan_worker_day_id"`
	FactWorkerDayID *string        `json:"fact_worker_day_id"`
	SuspiciousGap   bool           `json:"suspicious_gap"`
	Duplicate       bool           `json:"duplicate"`
}

func NewTickResponse(t Tick) TickResponse {
	return TickResponse{
		ID:              t.ID,
		EmployeeID:      t.EmployeeID,
		ShopID:          t.ShopID,
		Dttm:            t.Dttm,
		Kind:            t.Kind,
		Lateness:        t.LatenessSeconds,
		Verified:        t.Verified,
		BiometricsCheck: t.BiometricsCheck,
		Match:           t.Classification,
		PlanWorkerDayID: t.PlanWorkerDayID,
		FactWorkerDayID: t.FactWorkerDayID,
	}
}
