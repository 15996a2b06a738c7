package demand

import "time"

// Bucket is a forecast value for one (shop, work type, bucket start). Value
// is the number of service events expected in the bucket.
type Bucket struct {
	ShopID     string
	WorkTypeID string
	Start      time.Time
	Value      float64
}

// Forecast is a batch written by a forecast run for a (shop, work type) horizon.
type Forecast struct {
	ShopID     string
	WorkTypeID string
	From       time.Time
	To         time.Time
	Buckets    []Bucket
}
