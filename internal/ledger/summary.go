package ledger

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MemberSummary aggregates the attendance of one roll number.
type MemberSummary struct {
	RollNo        string  `json:"roll_no"`
	Name          string  `json:"name"`
	DaysPresent   int     `json:"days_present"`
	FirstDate     string  `json:"first_date"`
	LastDate      string  `json:"last_date"`
	MeanArrival   string  `json:"mean_arrival"`
	ArrivalStdDev float64 `json:"arrival_stddev_minutes"`
}

// Summarize groups records by roll number in order of first appearance.
// Rows with an unparsable time count as present but are left out of the
// arrival statistics.
func Summarize(records []Record) []MemberSummary {
	type acc struct {
		summary  MemberSummary
		arrivals []float64
	}

	var order []string
	byRoll := make(map[string]*acc)

	for _, r := range records {
		a, ok := byRoll[r.RollNo]
		if !ok {
			a = &acc{summary: MemberSummary{RollNo: r.RollNo, FirstDate: r.Date, LastDate: r.Date}}
			byRoll[r.RollNo] = a
			order = append(order, r.RollNo)
		}
		a.summary.Name = r.Name
		a.summary.DaysPresent++
		if r.Date < a.summary.FirstDate {
			a.summary.FirstDate = r.Date
		}
		if r.Date > a.summary.LastDate {
			a.summary.LastDate = r.Date
		}
		if t, err := time.Parse(TimeLayout, r.Time); err == nil {
			a.arrivals = append(a.arrivals, float64(t.Hour()*3600+t.Minute()*60+t.Second()))
		}
	}

	out := make([]MemberSummary, 0, len(order))
	for _, rollNo := range order {
		a := byRoll[rollNo]
		if len(a.arrivals) > 0 {
			mean, std := stat.MeanStdDev(a.arrivals, nil)
			if len(a.arrivals) < 2 || math.IsNaN(std) {
				std = 0
			}
			a.summary.MeanArrival = formatClock(mean)
			a.summary.ArrivalStdDev = math.Round(std/60*100) / 100
		}
		out = append(out, a.summary)
	}
	return out
}

func formatClock(seconds float64) string {
	s := int(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
