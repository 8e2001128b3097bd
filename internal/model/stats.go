package model

// SweepStats summarizes one sweep over all tracked wallets.
//
// Every wallet ends in exactly one of Processed, Skipped or Errors.
// FailedTrades counts individual trades that could not be persisted.
type SweepStats struct {
	Processed     int `json:"processed"`
	NewActivities int `json:"newActivities"`
	Errors        int `json:"errors"`
	Skipped       int `json:"skipped"`
	FailedTrades  int `json:"failedTrades"`
}

// Merge returns the sum of s and o.
func (s SweepStats) Merge(o SweepStats) SweepStats {
	return SweepStats{
		Processed:     s.Processed + o.Processed,
		NewActivities: s.NewActivities + o.NewActivities,
		Errors:        s.Errors + o.Errors,
		Skipped:       s.Skipped + o.Skipped,
		FailedTrades:  s.FailedTrades + o.FailedTrades,
	}
}

// Wallets returns the number of wallets accounted for.
func (s SweepStats) Wallets() int {
	return s.Processed + s.Skipped + s.Errors
}
