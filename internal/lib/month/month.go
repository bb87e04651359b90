// Package month содержит календарную арифметику по месяцам.
package month

import (
	"time"
)

// Add прибавляет n календарных месяцев к t.
// Если в целевом месяце нет такого дня, результат прижимается к последнему дню месяца:
// 31 января + 1 месяц = 29 (28) февраля. Время суток и зона сохраняются.
func Add(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
