// Package dateutil содержит календарную арифметику и форматирование дат,
// используемые при расчёте сроков подписки: последний день месяца,
// конец месяца, количество дней до даты.
package dateutil

import (
	"fmt"
	"time"
)

// UnknownDate — строка-заглушка для отсутствующей даты в сообщениях пользователю.
const UnknownDate = "неизвестная дата"

// LastDayOfMonth возвращает номер последнего дня месяца по григорианскому
// календарю, включая високосные годы.
func LastDayOfMonth(year int, month time.Month) int {
	switch month {
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	default:
		return 31
	}
}

// EndOfMonth возвращает последний момент месяца опорной даты: последний
// день в 23:59:59, в той же временной зоне.
func EndOfMonth(ref time.Time) time.Time {
	day := LastDayOfMonth(ref.Year(), ref.Month())
	return time.Date(ref.Year(), ref.Month(), day, 23, 59, 59, 0, ref.Location())
}

// DaysUntil возвращает количество полных дней от now до target.
// Для nil и прошедших дат возвращает 0, отрицательных значений не бывает.
func DaysUntil(target *time.Time, now time.Time) int {
	if target == nil {
		return 0
	}
	days := int(target.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// FormatDate форматирует дату как DD.MM.YYYY, для nil возвращает UnknownDate.
func FormatDate(d *time.Time) string {
	if d == nil {
		return UnknownDate
	}
	return fmt.Sprintf("%02d.%02d.%04d", d.Day(), int(d.Month()), d.Year())
}
