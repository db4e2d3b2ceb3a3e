package stats

import (
	"fmt"
	"time"

	"github.com/nopickie/nopickie/internal/backend"
)

const dateLayout = "2006-01-02"

// Chart is the per-day series of one week. A nil value is a gap and must be
// drawn as a break, never as zero. Charts are rebuilt on every week load;
// Generation tells successive instances apart.
type Chart struct {
	Generation uint64
	Labels     []string
	Dates      []string
	Values     []*int
}

// NewChart builds a chart from a week reply. It has one value per returned day.
// Days on or after today are gaps because their counts are still accumulating.
func NewChart(week backend.WeekStats, today time.Time, generation uint64) *Chart {
	n := len(week.Days)
	c := &Chart{
		Generation: generation,
		Labels:     make([]string, n),
		Dates:      make([]string, n),
		Values:     make([]*int, n),
	}

	start, startErr := time.ParseInLocation(dateLayout, week.WeekStart, today.Location())
	todayKey := today.Format(dateLayout)

	for i, day := range week.Days {
		date := ""
		if day != nil && day.Date != "" {
			date = day.Date
		} else if startErr == nil {
			date = start.AddDate(0, 0, i).Format(dateLayout)
		}
		c.Dates[i] = date
		c.Labels[i] = dayLabel(date, i)

		if !day.HasCount() {
			continue
		}
		if date != "" && date >= todayKey {
			continue
		}
		v := *day.TriggerCount
		c.Values[i] = &v
	}
	return c
}

func dayLabel(date string, i int) string {
	if t, err := time.Parse(dateLayout, date); err == nil {
		return t.Format("Mon")
	}
	return fmt.Sprintf("D%d", i+1)
}

// Len returns the number of days.
func (c *Chart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Values)
}

// Max returns the largest value, or 0 when every day is a gap.
func (c *Chart) Max() int {
	if c == nil {
		return 0
	}
	top := 0
	for _, v := range c.Values {
		if v != nil && *v > top {
			top = *v
		}
	}
	return top
}

// Total sums the non-gap values.
func (c *Chart) Total() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, v := range c.Values {
		if v != nil {
			total += *v
		}
	}
	return total
}

// Gaps returns the number of days without data.
func (c *Chart) Gaps() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}
