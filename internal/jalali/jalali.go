// Package jalali converts between the Jalali (Persian) civil calendar and the
// Gregorian calendar used for wall-clock scheduling.
//
// The conversion uses the 33-year break-cycle arithmetic (Birashk), which is
// exact and round-trip stable across the supported year range 1178-3177
// Jalali (roughly Gregorian 1800-3800).
package jalali

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned for a (year, month, day) outside the calendar.
var ErrInvalidDate = errors.New("jalali: invalid date")

// Date is a civil-calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// MonthNames maps Jalali month numbers to Persian month names.
var MonthNames = map[int]string{
	1:  "فروردین",
	2:  "اردیبهشت",
	3:  "خرداد",
	4:  "تیر",
	5:  "مرداد",
	6:  "شهریور",
	7:  "مهر",
	8:  "آبان",
	9:  "آذر",
	10: "دی",
	11: "بهمن",
	12: "اسفند",
}

// MonthName returns the Persian name for month m, or "نامشخص" if out of range.
func MonthName(m int) string {
	if name, ok := MonthNames[m]; ok {
		return name
	}
	return "نامشخص"
}

// Format renders d as "day month-name year".
func (d Date) Format() string {
	return fmt.Sprintf("%d %s %d", d.Day, MonthName(d.Month), d.Year)
}

// Years at which the length of the 33-year leap cycle changes.
var breaks = []int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181,
	1210, 1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// FromTime converts the civil date of t (in t's location) to a Jalali date.
func FromTime(t time.Time) Date {
	gy, gm, gd := t.Date()
	return d2j(g2d(gy, int(gm), gd))
}

// ToTime converts a Jalali date to midnight of the corresponding Gregorian
// day in loc. Invalid dates are rejected with ErrInvalidDate.
func ToTime(d Date, loc *time.Location) (time.Time, error) {
	if err := Validate(d); err != nil {
		return time.Time{}, err
	}
	gy, gm, gd := d2g(j2d(d.Year, d.Month, d.Day))
	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, loc), nil
}

// Validate checks that d names a real day of the Jalali calendar.
func Validate(d Date) error {
	if d.Year <= breaks[0] || d.Year >= breaks[len(breaks)-1] {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidDate, d.Year)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > MonthLength(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d of month %d year %d", ErrInvalidDate, d.Day, d.Month, d.Year)
	}
	return nil
}

// MonthLength returns the number of days in the given Jalali month.
func MonthLength(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case IsLeapYear(year):
		return 30
	default:
		return 29
	}
}

// IsLeapYear reports whether the Jalali year has 366 days.
func IsLeapYear(year int) bool {
	leap, _, _ := jalCal(year)
	return leap == 0
}

// Clock reads the wall clock in a fixed timezone and converts to Jalali.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a Clock for the named timezone, e.g. "Asia/Tehran".
func NewClock(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today returns the current Jalali date in the clock's timezone.
func (c *Clock) Today() Date {
	return FromTime(c.now().In(c.loc))
}

// Now returns the current wall-clock time in the clock's timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// jalCal computes, for a Jalali year, whether it is leap (leap == 0), the
// Gregorian year its Farvardin 1 falls in, and the March day of Farvardin 1.
func jalCal(jy int) (leap, gy, march int) {
	gy = jy + 621
	leapJ := -14
	jp := breaks[0]

	var jump int
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	n := jy - jp

	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}

	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march = 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap = ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return leap, gy, march
}

// j2d converts a Jalali date to its Julian day number.
func j2d(jy, jm, jd int) int {
	_, gy, march := jalCal(jy)
	return g2d(gy, 3, march) + (jm-1)*31 - jm/7*(jm-7) + jd - 1
}

// d2j converts a Julian day number to a Jalali date.
func d2j(jdn int) Date {
	gy, _, _ := d2g(jdn)
	jy := gy - 621
	leap, _, march := jalCal(jy)
	k := jdn - g2d(gy, 3, march)

	if k >= 0 {
		if k <= 185 {
			return Date{Year: jy, Month: 1 + k/31, Day: k%31 + 1}
		}
		k -= 186
	} else {
		jy--
		k += 179
		if leap == 1 {
			k++
		}
	}
	return Date{Year: jy, Month: 7 + k/30, Day: k%30 + 1}
}

// g2d converts a Gregorian date to its Julian day number.
func g2d(gy, gm, gd int) int {
	d := (gy+(gm-8)/6+100100)*1461/4 + (153*((gm+9)%12)+2)/5 + gd - 34840408
	return d - (gy+100100+(gm-8)/6)/100*3/4 + 752
}

// d2g converts a Julian day number to a Gregorian date.
func d2g(jdn int) (gy, gm, gd int) {
	j := 4*jdn + 139361631
	j += (4*jdn+183187720)/146097*3/4*4 - 3908
	i := j%1461/4*5 + 308
	gd = i%153/5 + 1
	gm = i/153%12 + 1
	gy = j/1461 - 100100 + (8-gm)/6
	return gy, gm, gd
}
