package entities

import "fmt"

// StatsPeriod selects the length of the daily series
type StatsPeriod string

const (
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
	StatsPeriodYear  StatsPeriod = "year"
)

// Days returns the number of days covered by the period
func (p StatsPeriod) Days() int {
	switch p {
	case StatsPeriodWeek:
		return 7
	case StatsPeriodYear:
		return 365
	default:
		return 30
	}
}

// ParseStatsPeriod parses a period, defaulting to month when empty
func ParseStatsPeriod(s string) (StatsPeriod, error) {
	switch StatsPeriod(s) {
	case "":
		return StatsPeriodMonth, nil
	case StatsPeriodWeek, StatsPeriodMonth, StatsPeriodYear:
		return StatsPeriod(s), nil
	default:
		return "", fmt.Errorf("unknown statistics period %q", s)
	}
}

// Statistics is the admin revenue and volume dashboard
type Statistics struct {
	Period            StatsPeriod     `json:"period"`
	TotalAppointments int             `json:"total_appointments"`
	Pending           int             `json:"pending"`
	Confirmed         int             `json:"confirmed"`
	Completed         int             `json:"completed"`
	Cancelled         int             `json:"cancelled"`
	TotalRevenue      float64         `json:"total_revenue"`
	Procedures        []ProcedureStat `json:"procedures"`
	Daily             []SeriesPoint   `json:"daily"`
	Monthly           []SeriesPoint   `json:"monthly"`
}

// ProcedureStat aggregates appointments for one procedure
type ProcedureStat struct {
	ProcedureID string  `json:"procedure_id"`
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	Revenue     float64 `json:"revenue"`
}

// SeriesPoint is one bucket of a time series
type SeriesPoint struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}
