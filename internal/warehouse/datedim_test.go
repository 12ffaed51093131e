package warehouse

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateKey(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{date(2023, time.March, 15), 20230315},
		{date(2023, time.January, 1), 20230101},
		{date(2023, time.December, 31), 20231231},
		{date(2024, time.February, 29), 20240229}, // leap day
		{date(1999, time.November, 3), 19991103},
	}

	for _, tt := range tests {
		if got := DateKey(tt.date); got != tt.want {
			t.Errorf("DateKey(%s) = %d, want %d",
				tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestQuarter(t *testing.T) {
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.January, 1},
		{time.March, 1},
		{time.April, 2},
		{time.June, 2},
		{time.July, 3},
		{time.September, 3},
		{time.October, 4},
		{time.December, 4},
	}

	for _, tt := range tests {
		d := date(2023, tt.month, 15)
		if got := Quarter(d); got != tt.want {
			t.Errorf("Quarter(%s) = %d, want %d", tt.month, got, tt.want)
		}
	}
}

func TestISOWeekday(t *testing.T) {
	// 2023-03-13 is a Monday.
	monday := date(2023, time.March, 13)
	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		want := i + 1
		if got := ISOWeekday(d); got != want {
			t.Errorf("ISOWeekday(%s %s) = %d, want %d",
				d.Format("2006-01-02"), d.Weekday(), got, want)
		}
	}

	// 2023-03-15 from the reference example is a Wednesday.
	if got := ISOWeekday(date(2023, time.March, 15)); got != 3 {
		t.Errorf("ISOWeekday(2023-03-15) = %d, want 3", got)
	}
}

func TestPopulateDateDimRejectsInvertedRange(t *testing.T) {
	_, err := PopulateDateDim(t.Context(), nil,
		date(2023, time.June, 1), date(2023, time.January, 1))
	if err == nil {
		t.Fatal("Expected error for inverted range, got nil")
	}
}
