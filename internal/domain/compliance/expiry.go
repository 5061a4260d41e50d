package compliance

import "time"

type Standing string

const (
	StandingValid        Standing = "valid"
	StandingExpiringSoon Standing = "expiring_soon"
	StandingExpired      Standing = "expired"
)

const (
	daysPerValidityMonth = 30
	ExpiryWindow         = 30 * 24 * time.Hour
)

type ExpiryResult struct {
	ExpiryDate    time.Time `json:"expiry_date"`
	Standing      Standing  `json:"standing"`
	DaysRemaining int       `json:"days_remaining"`
}

// ExpiryDate adds months*30 days to issue. Validity months are not calendar
// months.
func ExpiryDate(issue time.Time, validityMonths int) (time.Time, error) {
	if validityMonths < 1 {
		return time.Time{}, invalid("validity_months", "must be positive, got %d", validityMonths)
	}
	return issue.AddDate(0, 0, validityMonths*daysPerValidityMonth), nil
}

// ClassifyStanding compares an expiry date with an explicit now.
func ClassifyStanding(expiry time.Time, now time.Time) Standing {
	switch {
	case now.After(expiry):
		return StandingExpired
	case expiry.Sub(now) <= ExpiryWindow:
		return StandingExpiringSoon
	default:
		return StandingValid
	}
}

func TrackExpiry(issue time.Time, validityMonths int, now time.Time) (ExpiryResult, error) {
	expiry, err := ExpiryDate(issue, validityMonths)
	if err != nil {
		return ExpiryResult{}, err
	}
	return StandingOf(expiry, now), nil
}

func StandingOf(expiry time.Time, now time.Time) ExpiryResult {
	return ExpiryResult{
		ExpiryDate:    expiry,
		Standing:      ClassifyStanding(expiry, now),
		DaysRemaining: daysBetween(now, expiry),
	}
}

// daysBetween counts whole days from a to b, negative when b is before a.
func daysBetween(a time.Time, b time.Time) int {
	d := b.Sub(a)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
