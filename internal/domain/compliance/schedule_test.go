package compliance

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScheduleMonthlyClampsShortMonths(t *testing.T) {
	got, err := Schedule(day(2024, 1, 31), FrequencyMonthly, 3, 0)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	want := []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 31)}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("Schedule()[%d] = %s, want %s", i, got[i].Format(time.DateOnly), want[i].Format(time.DateOnly))
		}
	}
}

func TestScheduleMonthlyRollsYear(t *testing.T) {
	got, err := Schedule(day(2023, 11, 30), FrequencyMonthly, 4, 0)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	want := []time.Time{day(2023, 11, 30), day(2023, 12, 30), day(2024, 1, 30), day(2024, 2, 29)}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("Schedule()[%d] = %s, want %s", i, got[i].Format(time.DateOnly), want[i].Format(time.DateOnly))
		}
	}
}

func TestScheduleDailyAndWeekly(t *testing.T) {
	daily, err := Schedule(day(2024, 2, 27), FrequencyDaily, 4, 0)
	if err != nil {
		t.Fatalf("Schedule(daily) error = %v", err)
	}
	if !daily[3].Equal(day(2024, 3, 1)) {
		t.Fatalf("Schedule(daily)[3] = %s", daily[3])
	}

	weekly, err := Schedule(day(2024, 1, 1), FrequencyWeekly, 3, 0)
	if err != nil {
		t.Fatalf("Schedule(weekly) error = %v", err)
	}
	if !weekly[0].Equal(day(2024, 1, 1)) || !weekly[2].Equal(day(2024, 1, 15)) {
		t.Fatalf("Schedule(weekly) = %v", weekly)
	}
}

func TestScheduleBounds(t *testing.T) {
	if _, err := Schedule(day(2024, 1, 1), FrequencyDaily, 0, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("Schedule(0) error = %v", err)
	}
	if _, err := Schedule(day(2024, 1, 1), FrequencyDaily, 53, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("Schedule(53) error = %v", err)
	}
	if got, err := Schedule(day(2024, 1, 1), FrequencyWeekly, 52, 0); err != nil || len(got) != 52 {
		t.Fatalf("Schedule(52) = %d, %v", len(got), err)
	}
	if _, err := Schedule(day(2024, 1, 1), FrequencyDaily, 10, 5); !errors.Is(err, ErrValidation) {
		t.Fatalf("Schedule(max=5) error = %v", err)
	}
	if _, err := Schedule(day(2024, 1, 1), Frequency("yearly"), 2, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("Schedule(yearly) error = %v", err)
	}
}

func TestExpiryUsesThirtyDayMonths(t *testing.T) {
	issue := day(2024, 1, 1)
	got, err := TrackExpiry(issue, 12, day(2024, 12, 15))
	if err != nil {
		t.Fatalf("TrackExpiry() error = %v", err)
	}
	if !got.ExpiryDate.Equal(day(2024, 12, 26)) {
		t.Fatalf("TrackExpiry() expiry = %s", got.ExpiryDate.Format(time.DateOnly))
	}
	if got.Standing != StandingExpiringSoon || got.DaysRemaining != 11 {
		t.Fatalf("TrackExpiry() = %+v", got)
	}

	later, err := TrackExpiry(issue, 12, day(2025, 1, 10))
	if err != nil {
		t.Fatalf("TrackExpiry() error = %v", err)
	}
	if later.Standing != StandingExpired || later.DaysRemaining >= 0 {
		t.Fatalf("TrackExpiry(later) = %+v", later)
	}
}

func TestClassifyStandingWindow(t *testing.T) {
	expiry := day(2024, 6, 30)
	cases := []struct {
		now  time.Time
		want Standing
	}{
		{day(2024, 5, 30), StandingValid},
		{day(2024, 5, 31), StandingExpiringSoon},
		{expiry, StandingExpiringSoon},
		{expiry.Add(time.Second), StandingExpired},
	}
	for _, tc := range cases {
		if got := ClassifyStanding(expiry, tc.now); got != tc.want {
			t.Fatalf("ClassifyStanding(now=%s) = %s, want %s", tc.now, got, tc.want)
		}
	}
}

func TestExpiryDateRejectsNonPositiveMonths(t *testing.T) {
	if _, err := ExpiryDate(day(2024, 1, 1), 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("ExpiryDate(0) error = %v", err)
	}
}
