package activity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/activity"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/geo"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
)

func lastLoginAt(at time.Time, city, country string) *model.LoginAuditEntry {
	return &model.LoginAuditEntry{
		ID:        "aud_prev",
		UserID:    "usr_1",
		Event:     model.AuditLogin,
		Status:    model.AuditSuccess,
		City:      city,
		Country:   country,
		CreatedAt: at,
	}
}

func TestDetector_FirstLoginNeverSuspicious(t *testing.T) {
	d := activity.NewDetector()

	a := d.Assess(activity.Input{
		LastLogin:      nil,
		Location:       geo.Location{City: "Reykjavik", Country: "IS"},
		Fingerprint:    auth.Fingerprint{Browser: "Chrome", OS: "Windows", DeviceType: "desktop"},
		KnownDevice:    false,
		RecentFailures: 10,
		Now:            time.Now(),
	})

	assert.False(t, a.Suspicious)
	assert.Empty(t, a.Reasons)
	assert.False(t, a.IsNewLocation)
	assert.False(t, a.IsNewDevice)
}

func TestDetector_KnownDeviceKnownLocation(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-24*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Berlin", Country: "DE"},
		HasLocationHistory: true,
		KnownLocation:      true,
		KnownDevice:        true,
		Now:                now,
	})

	assert.False(t, a.Suspicious)
}

func TestDetector_LocationAbsentFromHistory(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-48*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Tokyo", Country: "JP"},
		HasLocationHistory: true,
		KnownLocation:      false,
		KnownDevice:        true,
		Now:                now,
	})

	assert.True(t, a.Suspicious)
	assert.True(t, a.IsNewLocation)
	assert.Contains(t, a.Reasons, activity.SignalNewLocation)
	assert.NotContains(t, a.Reasons, activity.SignalImpossibleTravel)
}

func TestDetector_AlternatingBetweenKnownLocationsIsRoutine(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	// Last login was Munich, but Berlin is in the history too: a commuter
	// bouncing between regular offices is not a new location.
	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-48*time.Hour), "Munich", "DE"),
		Location:           geo.Location{City: "Berlin", Country: "DE"},
		HasLocationHistory: true,
		KnownLocation:      true,
		KnownDevice:        true,
		Now:                now,
	})

	assert.False(t, a.IsNewLocation)
	assert.False(t, a.Suspicious)
}

func TestDetector_NewCitySameCountry(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-48*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Hamburg", Country: "DE"},
		HasLocationHistory: true,
		KnownLocation:      false,
		KnownDevice:        true,
		Now:                now,
	})

	assert.True(t, a.IsNewLocation)
}

func TestDetector_ImpossibleTravel(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-1*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Tokyo", Country: "JP"},
		HasLocationHistory: true,
		KnownLocation:      false,
		KnownDevice:        true,
		Now:                now,
	})

	assert.True(t, a.Suspicious)
	assert.Contains(t, a.Reasons, activity.SignalImpossibleTravel)
}

func TestDetector_CountryChangeAfterWindowIsNotImpossibleTravel(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-7*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Tokyo", Country: "JP"},
		HasLocationHistory: true,
		KnownLocation:      false,
		KnownDevice:        true,
		Now:                now,
	})

	assert.NotContains(t, a.Reasons, activity.SignalImpossibleTravel)
	assert.True(t, a.IsNewLocation)
}

func TestDetector_ReturnToKnownCountrySoonAfterTravel(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	// Country changed within the window, but it is a country the user has
	// logged in from before: still impossible travel, never a new location.
	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-2*time.Hour), "Tokyo", "JP"),
		Location:           geo.Location{City: "Berlin", Country: "DE"},
		HasLocationHistory: true,
		KnownLocation:      true,
		KnownDevice:        true,
		Now:                now,
	})

	assert.False(t, a.IsNewLocation)
	assert.Contains(t, a.Reasons, activity.SignalImpossibleTravel)
}

func TestDetector_NewDevice(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-24*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Berlin", Country: "DE"},
		HasLocationHistory: true,
		KnownLocation:      true,
		KnownDevice:        false,
		Now:                now,
	})

	assert.True(t, a.Suspicious)
	assert.True(t, a.IsNewDevice)
	assert.Contains(t, a.Reasons, activity.SignalNewDevice)
}

func TestDetector_FailureVelocity(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-24*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Berlin", Country: "DE"},
		HasLocationHistory: true,
		KnownLocation:      true,
		KnownDevice:        true,
		RecentFailures:     5,
		Now:                now,
	})

	assert.True(t, a.Suspicious)
	assert.Contains(t, a.Reasons, activity.SignalFailureVelocity)

	a = d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-24*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{City: "Berlin", Country: "DE"},
		HasLocationHistory: true,
		KnownLocation:      true,
		KnownDevice:        true,
		RecentFailures:     4,
		Now:                now,
	})

	assert.False(t, a.Suspicious)
}

func TestDetector_UnknownLocationIsInconclusive(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-1*time.Hour), "Berlin", "DE"),
		Location:           geo.Location{},
		HasLocationHistory: true,
		KnownDevice:        true,
		Now:                now,
	})

	assert.False(t, a.IsNewLocation)
	assert.NotContains(t, a.Reasons, activity.SignalImpossibleTravel)
}

func TestDetector_NoLocationHistoryIsInconclusive(t *testing.T) {
	d := activity.NewDetector()
	now := time.Now()

	// Prior logins exist but none resolved to a location, so this first
	// resolvable one has nothing to deviate from.
	a := d.Assess(activity.Input{
		LastLogin:          lastLoginAt(now.Add(-24*time.Hour), "", ""),
		Location:           geo.Location{City: "Berlin", Country: "DE"},
		HasLocationHistory: false,
		KnownLocation:      false,
		KnownDevice:        true,
		Now:                now,
	})

	assert.False(t, a.IsNewLocation)
	assert.False(t, a.Suspicious)
}
