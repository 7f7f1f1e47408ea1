package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Coin listings move constantly but the frontend only needs hourly granularity
	TTLListings = time.Hour

	// The fear/greed index is published once per day
	TTLFearGreed = 24 * time.Hour

	// Gold spot moves slowly relative to how often users check it
	TTLGoldPrice = 4 * time.Hour
)
