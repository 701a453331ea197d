package external

import (
	"time"

	"weatherdash.app/internal/ports"
)

const maxWeeklyDays = 7

// ForecastStep is one 3-hour forecast entry reduced to what daily aggregation needs
type ForecastStep struct {
	Timestamp int64
	TempC     *float64
	// Condition is nil when the step carries no weather entry
	Condition *StepCondition
}

// StepCondition is the icon and description reported for a step
type StepCondition struct {
	Icon        string
	Description string
}

type dayBucket struct {
	steps []ForecastStep
}

// AggregateDaily groups steps by calendar date in the zone given by
// utcOffset, keeping at most maxDays buckets in first-seen order. Each
// bucket reports the min and max temperature and its most frequent
// condition. On a frequency tie the condition seen first wins.
func AggregateDaily(steps []ForecastStep, utcOffset int, maxDays int) []ports.DailyForecast {
	zone := time.FixedZone("", utcOffset)

	var order []string
	buckets := make(map[string]*dayBucket)
	for _, step := range steps {
		date := time.Unix(step.Timestamp, 0).In(zone).Format("2006-01-02")
		bucket, ok := buckets[date]
		if !ok {
			bucket = &dayBucket{}
			buckets[date] = bucket
			order = append(order, date)
		}
		bucket.steps = append(bucket.steps, step)
	}

	if len(order) > maxDays {
		order = order[:maxDays]
	}

	days := make([]ports.DailyForecast, 0, len(order))
	for _, date := range order {
		days = append(days, summarizeDay(buckets[date].steps, zone))
	}
	return days
}

func summarizeDay(steps []ForecastStep, zone *time.Location) ports.DailyForecast {
	first := steps[0]
	day := ports.DailyForecast{
		Timestamp: first.Timestamp,
		Weekday:   FormatWeekday(time.Unix(first.Timestamp, 0).In(zone)),
	}

	for _, step := range steps {
		if step.TempC == nil {
			continue
		}
		t := *step.TempC
		if day.TempMin == nil || t < *day.TempMin {
			v := t
			day.TempMin = &v
		}
		if day.TempMax == nil || t > *day.TempMax {
			v := t
			day.TempMax = &v
		}
	}

	if cond := mostFrequentCondition(steps); cond != nil {
		day.Icon = cond.Icon
		day.Desc = cond.Description
	}
	return day
}

func mostFrequentCondition(steps []ForecastStep) *StepCondition {
	var order []StepCondition
	counts := make(map[StepCondition]int)
	for _, step := range steps {
		if step.Condition == nil {
			continue
		}
		c := *step.Condition
		if _, seen := counts[c]; !seen {
			order = append(order, c)
		}
		counts[c]++
	}

	var best *StepCondition
	bestCount := 0
	for i := range order {
		if n := counts[order[i]]; n > bestCount {
			best = &order[i]
			bestCount = n
		}
	}
	return best
}

// FormatWeekday renders a day heading such as "Mon, Jan 2"
func FormatWeekday(t time.Time) string {
	return t.Format("Mon, Jan 2")
}
