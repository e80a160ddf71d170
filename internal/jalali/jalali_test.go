package jalali

import (
	"errors"
	"testing"
	"time"
)

func TestKnownConversions(t *testing.T) {
	cases := []struct {
		gy, gm, gd int
		want       Date
	}{
		{2016, 4, 11, Date{1395, 1, 23}},
		{2016, 3, 20, Date{1395, 1, 1}},
		{2016, 3, 19, Date{1394, 12, 29}},
		{1979, 2, 11, Date{1357, 11, 22}},
	}

	for _, tc := range cases {
		g := time.Date(tc.gy, time.Month(tc.gm), tc.gd, 12, 0, 0, 0, time.UTC)
		if got := FromTime(g); got != tc.want {
			t.Errorf("FromTime(%04d-%02d-%02d) = %+v, want %+v", tc.gy, tc.gm, tc.gd, got, tc.want)
		}

		back, err := ToTime(tc.want, time.UTC)
		if err != nil {
			t.Fatalf("ToTime(%+v): %v", tc.want, err)
		}
		if y, m, d := back.Date(); y != tc.gy || int(m) != tc.gm || d != tc.gd {
			t.Errorf("ToTime(%+v) = %04d-%02d-%02d, want %04d-%02d-%02d", tc.want, y, m, d, tc.gy, tc.gm, tc.gd)
		}
	}
}

func TestRoundTripAndMonotonic(t *testing.T) {
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC)

	prev := FromTime(start)
	for g := start.AddDate(0, 0, 1); g.Before(end); g = g.AddDate(0, 0, 1) {
		cur := FromTime(g)

		back, err := ToTime(cur, time.UTC)
		if err != nil {
			t.Fatalf("ToTime(%+v): %v", cur, err)
		}
		if !back.Equal(g) {
			t.Fatalf("round trip %s -> %+v -> %s", g.Format("2006-01-02"), cur, back.Format("2006-01-02"))
		}

		// Each Gregorian day advances the Jalali date by exactly one day.
		switch {
		case cur.Year == prev.Year && cur.Month == prev.Month && cur.Day == prev.Day+1:
		case cur.Year == prev.Year && cur.Month == prev.Month+1 && cur.Day == 1 && prev.Day == MonthLength(prev.Year, prev.Month):
		case cur.Year == prev.Year+1 && cur.Month == 1 && cur.Day == 1 && prev.Month == 12 && prev.Day == MonthLength(prev.Year, 12):
		default:
			t.Fatalf("non-monotonic step: %+v -> %+v at %s", prev, cur, g.Format("2006-01-02"))
		}
		prev = cur
	}
}

func TestIsLeapYear(t *testing.T) {
	leap := map[int]bool{1395: true, 1399: true, 1403: true, 1394: false, 1396: false, 1404: false}
	for year, want := range leap {
		if got := IsLeapYear(year); got != want {
			t.Errorf("IsLeapYear(%d) = %v, want %v", year, got, want)
		}
	}
}

func TestMonthLength(t *testing.T) {
	if got := MonthLength(1395, 1); got != 31 {
		t.Errorf("Farvardin length = %d, want 31", got)
	}
	if got := MonthLength(1395, 7); got != 30 {
		t.Errorf("Mehr length = %d, want 30", got)
	}
	if got := MonthLength(1395, 12); got != 30 {
		t.Errorf("Esfand 1395 (leap) length = %d, want 30", got)
	}
	if got := MonthLength(1394, 12); got != 29 {
		t.Errorf("Esfand 1394 length = %d, want 29", got)
	}
}

func TestToTimeInvalid(t *testing.T) {
	bad := []Date{
		{1400, 0, 1},
		{1400, 13, 1},
		{1400, 1, 0},
		{1400, 1, 32},
		{1400, 7, 31},
		{1394, 12, 30},
		{-100, 1, 1},
		{4000, 1, 1},
	}
	for _, d := range bad {
		if _, err := ToTime(d, time.UTC); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ToTime(%+v) err = %v, want ErrInvalidDate", d, err)
		}
	}
}

func TestFormat(t *testing.T) {
	d := Date{Year: 1403, Month: 5, Day: 7}
	if got := d.Format(); got != "7 مرداد 1403" {
		t.Errorf("Format() = %q", got)
	}
}

func TestClockToday(t *testing.T) {
	c, err := NewClock("Asia/Tehran")
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	// 2016-03-20 21:00 UTC is already March 21 in Tehran (UTC+3:30/+4:30).
	c.now = func() time.Time {
		return time.Date(2016, 3, 20, 21, 0, 0, 0, time.UTC)
	}
	if got := c.Today(); got != (Date{1395, 1, 2}) {
		t.Errorf("Today() = %+v, want 1395/1/2", got)
	}
}
