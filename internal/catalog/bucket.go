package catalog

// PriceBucket names a price range filter.
type PriceBucket string

const (
	BucketUnder200 PriceBucket = "under-200"
	Bucket200To300 PriceBucket = "200-300"
	BucketOver300  PriceBucket = "over-300"
)

const (
	bucketLow  = 200000
	bucketHigh = 300000
)

// Contains reports whether price falls inside b. Unknown buckets contain every price.
func (b PriceBucket) Contains(price int64) bool {
	switch b {
	case BucketUnder200:
		return price < bucketLow
	case Bucket200To300:
		return price >= bucketLow && price <= bucketHigh
	case BucketOver300:
		return price > bucketHigh
	default:
		return true
	}
}

// FilterByPriceBucket keeps the products whose price is in b.
func FilterByPriceBucket(products []Product, b PriceBucket) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if b.Contains(p.Price) {
			out = append(out, p)
		}
	}
	return out
}
