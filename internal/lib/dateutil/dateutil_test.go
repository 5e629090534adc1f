package dateutil

import (
	"testing"
	"time"
)

func TestLastDayOfMonth_TableTests(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		want  int
	}{
		{"january", 2024, time.January, 31},
		{"april has 30 days", 2024, time.April, 30},
		{"june has 30 days", 2023, time.June, 30},
		{"september has 30 days", 2023, time.September, 30},
		{"november has 30 days", 2023, time.November, 30},
		{"february leap year", 2024, time.February, 29},
		{"february common year", 2023, time.February, 28},
		{"february divisible by 400", 2000, time.February, 29},
		{"february divisible by 100 only", 1900, time.February, 28},
		{"december", 2024, time.December, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LastDayOfMonth(tt.year, tt.month)
			if got != tt.want {
				t.Errorf("LastDayOfMonth(%d, %v) = %d, want %d", tt.year, tt.month, got, tt.want)
			}
		})
	}
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{
			name: "middle of march",
			ref:  time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC),
			want: time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name: "leap february",
			ref:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			name: "already last day",
			ref:  time.Date(2023, 11, 30, 23, 59, 59, 0, time.UTC),
			want: time.Date(2023, 11, 30, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EndOfMonth(tt.ref)
			if !got.Equal(tt.want) {
				t.Errorf("EndOfMonth(%v) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 7)
	past := now.AddDate(0, 0, -3)

	tests := []struct {
		name   string
		target *time.Time
		want   int
	}{
		{"nil target", nil, 0},
		{"seven days ahead", &future, 7},
		{"past date never negative", &past, 0},
		{"same moment", &now, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysUntil(tt.target, now)
			if got != tt.want {
				t.Errorf("DaysUntil(%v, %v) = %d, want %d", tt.target, now, got, tt.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)

	if got := FormatDate(&d); got != "05.03.2024" {
		t.Errorf("FormatDate = %q, want %q", got, "05.03.2024")
	}
	if got := FormatDate(nil); got != UnknownDate {
		t.Errorf("FormatDate(nil) = %q, want %q", got, UnknownDate)
	}
}
