package stats

// Report is a flat, serialisable form of a Snapshot. Days without data keep a
// nil count so encoders write null rather than zero.
type Report struct {
	Today     *int        `json:"today" yaml:"today"`
	WeekLabel string      `json:"week_label,omitempty" yaml:"week_label,omitempty"`
	WeekStart string      `json:"week_start,omitempty" yaml:"week_start,omitempty"`
	WeekEnd   string      `json:"week_end,omitempty" yaml:"week_end,omitempty"`
	Total     int         `json:"total" yaml:"total"`
	Days      []DayReport `json:"days" yaml:"days"`
}

// DayReport is one day of a Report.
type DayReport struct {
	Date         string `json:"date,omitempty" yaml:"date,omitempty"`
	Day          string `json:"day" yaml:"day"`
	TriggerCount *int   `json:"trigger_count" yaml:"trigger_count"`
}

// Report converts the snapshot.
func (s Snapshot) Report() Report {
	r := Report{
		WeekLabel: s.WeekLabel,
		WeekStart: s.WeekStart,
		WeekEnd:   s.WeekEnd,
		Total:     s.Chart.Total(),
		Days:      make([]DayReport, 0, s.Chart.Len()),
	}
	if s.TodayLoaded {
		today := s.Today
		r.Today = &today
	}
	for i := 0; i < s.Chart.Len(); i++ {
		r.Days = append(r.Days, DayReport{
			Date:         s.Chart.Dates[i],
			Day:          s.Chart.Labels[i],
			TriggerCount: s.Chart.Values[i],
		})
	}
	return r
}
