package indicator

import (
	"time"

	"basescan/pkg/model"
)

// WeekEnding returns the Friday that closes the calendar week containing t.
// Saturday and Sunday roll forward to the next Friday.
func WeekEnding(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// ToWeekly aggregates ascending daily bars into weeks ending Friday. The
// result is freshly allocated; the input is not modified.
func ToWeekly(daily []model.Candle) []model.Candle {
	if len(daily) == 0 {
		return nil
	}

	weekly := make([]model.Candle, 0, len(daily)/5+2)
	var cur model.Candle
	var curEnd time.Time
	open := false

	for _, b := range daily {
		end := WeekEnding(b.Time)
		if !open || !end.Equal(curEnd) {
			if open {
				weekly = append(weekly, cur)
			}
			cur = model.Candle{
				Time:   end,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			curEnd = end
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if open {
		weekly = append(weekly, cur)
	}
	return weekly
}
