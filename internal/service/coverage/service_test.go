package coverage

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*CoverageServiceImpl, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	net := network.Default("net-1")
	net.AbsenteeismPercent = 10
	s.AddNetwork(net)
	s.AddShop(shop.Shop{ID: "shop-1", NetworkID: "net-1", Code: "S1"})
	s.AddWorkType(shop.WorkType{ID: "cash", ShopID: "shop-1", Name: "Cashier", SpeedCoefficient: 1})
	s.AddEmployment(employee.Employment{ID: "em-1", EmployeeID: "e1", ShopID: "shop-1", HireDate: day1.AddDate(-1, 0, 0)})

	svc := NewCoverageService(s, s.Networks(), s.Shops(), s.WorkTypes(), s.Demand(), s.WorkerDays(), s.Employments())
	svc.now = func() time.Time { return hm(8, 0) }
	return svc, s
}

func TestCoverageService_Build(t *testing.T) {
	svc, s := newService(t)
	s.AddBuckets(
		demand.Bucket{ShopID: "shop-1", WorkTypeID: "cash", Start: hm(10, 0), Value: 60},
		demand.Bucket{ShopID: "shop-1", WorkTypeID: "cash", Start: hm(10, 30), Value: 30},
	)
	s.AddWorkerDay(plan("p1", "e1", workerday.KindWorkday, workerday.Detail{WorkTypeID: "cash", Start: hm(10, 0), End: hm(11, 0)}))

	series, err := svc.Build(context.Background(), coverage.Query{
		ShopID:      "shop-1",
		WorkTypeIDs: []string{"cash"},
		From:        hm(10, 0),
		To:          hm(11, 30),
	})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{hm(10, 0), hm(10, 30), hm(11, 0)}, series.Buckets)
	assert.InDelta(t, 2.2, series.Demand[0], 1e-9)
	assert.InDelta(t, 1.1, series.Demand[1], 1e-9)
	assert.Equal(t, []float64{1, 1, 0}, series.Coverage)
	assert.Equal(t, []bool{false, false, true}, series.Missing)
	assert.InDelta(t, 1.2, series.Gap(0), 1e-9)
	assert.Zero(t, series.Gap(2))
}

func TestCoverageService_BuildErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Build(ctx, coverage.Query{ShopID: "missing", WorkTypeIDs: []string{"cash"}, From: hm(10, 0), To: hm(11, 0)})
	assert.ErrorIs(t, err, shop.ErrShopNotFound)

	_, err = svc.Build(ctx, coverage.Query{ShopID: "shop-1", From: hm(10, 0), To: hm(11, 0)})
	assert.ErrorIs(t, err, coverage.ErrNoWorkTypes)

	_, err = svc.Build(ctx, coverage.Query{ShopID: "shop-1", WorkTypeIDs: []string{"other"}, From: hm(10, 0), To: hm(11, 0)})
	assert.ErrorIs(t, err, shop.ErrWorkTypeNotFound)

	_, err = svc.Build(ctx, coverage.Query{ShopID: "shop-1", WorkTypeIDs: []string{"cash"}, From: hm(10, 0), To: hm(10, 0)})
	assert.ErrorIs(t, err, coverage.ErrEmptyWindow)
}

func TestCoverageService_WriteForecast(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		f       demand.Forecast
		wantErr error
	}{
		{
			name: "past date is immutable",
			f: demand.Forecast{ShopID: "shop-1", WorkTypeID: "cash", From: hm(10, 0).AddDate(0, 0, -1), To: hm(12, 0).AddDate(0, 0, -1),
				Buckets: []demand.Bucket{{Start: hm(10, 0).AddDate(0, 0, -1), Value: 10}}},
			wantErr: demand.ErrPastBucket,
		},
		{
			name: "misaligned bucket",
			f: demand.Forecast{ShopID: "shop-1", WorkTypeID: "cash", From: hm(10, 0), To: hm(12, 0),
				Buckets: []demand.Bucket{{Start: hm(10, 10), Value: 10}}},
			wantErr: demand.ErrMisaligned,
		},
		{
			name: "bucket outside horizon",
			f: demand.Forecast{ShopID: "shop-1", WorkTypeID: "cash", From: hm(10, 0), To: hm(12, 0),
				Buckets: []demand.Bucket{{Start: hm(12, 0), Value: 10}}},
			wantErr: demand.ErrOutOfHorizon,
		},
		{
			name:    "unknown work type",
			f:       demand.Forecast{ShopID: "shop-1", WorkTypeID: "nope", From: hm(10, 0), To: hm(12, 0)},
			wantErr: shop.ErrWorkTypeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.WriteForecast(ctx, tt.f), tt.wantErr)
		})
	}

	s.AddBuckets(demand.Bucket{ShopID: "shop-1", WorkTypeID: "cash", Start: hm(11, 0), Value: 99})
	err := svc.WriteForecast(ctx, demand.Forecast{
		ShopID: "shop-1", WorkTypeID: "cash", From: hm(10, 0), To: hm(12, 0),
		Buckets: []demand.Bucket{{Start: hm(10, 0), Value: 30}, {Start: hm(10, 30), Value: 45}},
	})
	require.NoError(t, err)

	buckets, err := s.Demand().ListBuckets(ctx, "shop-1", []string{"cash"}, hm(0, 0), hm(23, 59))
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, 30.0, buckets[0].Value)
	assert.Equal(t, 45.0, buckets[1].Value)
}
