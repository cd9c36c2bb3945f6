package model

// UsageRecord is the per-(user, UTC day) counter behind the daily quota on
// gated operations. It is mutated only through an atomic increment-with-cap.
type UsageRecord struct {
	UserID string `json:"user_id"`
	Day    string `json:"day"` // UTC date, YYYYMMDD
	Count  int64  `json:"count"`
}
