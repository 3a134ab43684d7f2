package domain

// FleetSummary aggregates credit totals across the whole fleet.
type FleetSummary struct {
	TotalInverters  int64   `json:"total_inverters"`
	TotalCredits    int64   `json:"total_credits"`
	VerifiedCredits int64   `json:"verified_credits"`
	FlaggedCredits  int64   `json:"flagged_credits"`
	PendingCredits  int64   `json:"pending_credits"`
	TotalTonnes     float64 `json:"total_tonnes_co2"`
	VerifiedTonnes  float64 `json:"verified_tonnes_co2"`
}
