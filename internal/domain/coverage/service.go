package coverage

import (
	"context"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
)

type CoverageService interface {
	// Build returns the demand and coverage series for q. It never writes.
	Build(ctx context.Context, q Query) (Series, error)

	// WriteForecast replaces future buckets of a forecast horizon.
	WriteForecast(ctx context.Context, f demand.Forecast) error
}
