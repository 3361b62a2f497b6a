// Package activity scores login attempts for suspicious signals. The
// detector is advisory only: it annotates the audit trail and triggers
// notification emails, it never blocks a login on its own.
package activity

import (
	"time"

	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/auth"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/geo"
	"github.com/thenjeremy5-netizen/CareerStack-sub004/internal/model"
)

// Signal names recorded on audit entries
const (
	SignalNewLocation      = "new_location"
	SignalNewDevice        = "new_device"
	SignalImpossibleTravel = "impossible_travel"
	SignalFailureVelocity  = "failure_velocity"
)

const (
	// travelWindow is how soon after the previous login a country change
	// counts as impossible travel.
	travelWindow = 6 * time.Hour

	// velocityThreshold failed attempts within velocityWindow flag the
	// successful login that follows them.
	velocityThreshold = 5
	velocityWindow    = 15 * time.Minute
)

// Assessment is the detector's verdict on a single login
type Assessment struct {
	Suspicious    bool
	Reasons       []string
	IsNewLocation bool
	IsNewDevice   bool
}

// Input carries everything known about the attempt at assessment time
type Input struct {
	// LastLogin is the most recent successful login from the audit trail,
	// nil when the user has never logged in.
	LastLogin   *model.LoginAuditEntry
	Location    geo.Location
	Fingerprint auth.Fingerprint
	// HasLocationHistory is whether any prior successful login resolved to a
	// known location. KnownLocation is whether this attempt's location
	// matches one of them.
	HasLocationHistory bool
	KnownLocation      bool
	// KnownDevice is whether this browser/OS/device-type combination has been
	// seen on any prior session for the user.
	KnownDevice bool
	// RecentFailures is the count of failed logins within the velocity window
	RecentFailures int
	Now            time.Time
}

// Detector evaluates login attempts against the user's history
type Detector struct{}

// NewDetector creates a Detector
func NewDetector() *Detector {
	return &Detector{}
}

// Assess compares the attempt against the user's login history and device
// history. A first-ever login is never suspicious; there is no baseline to
// deviate from.
func (d *Detector) Assess(in Input) Assessment {
	var a Assessment

	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	if in.LastLogin == nil {
		return a
	}

	if d.isNewLocation(in) {
		a.IsNewLocation = true
		a.Reasons = append(a.Reasons, SignalNewLocation)
	}

	if !in.KnownDevice {
		a.IsNewDevice = true
		a.Reasons = append(a.Reasons, SignalNewDevice)
	}

	if d.isImpossibleTravel(in) {
		a.Reasons = append(a.Reasons, SignalImpossibleTravel)
	}

	if in.RecentFailures >= velocityThreshold {
		a.Reasons = append(a.Reasons, SignalFailureVelocity)
	}

	a.Suspicious = len(a.Reasons) > 0
	return a
}

// VelocityWindow is the lookback period for counting failed attempts
func (d *Detector) VelocityWindow() time.Duration {
	return velocityWindow
}

// isNewLocation flags locations absent from the user's whole successful-login
// history, not merely different from the previous login. Bouncing between two
// regular locations is routine, not suspicious.
func (d *Detector) isNewLocation(in Input) bool {
	// Unknown locations and users with no resolvable history are
	// inconclusive, not suspicious
	if !in.Location.Known() || !in.HasLocationHistory {
		return false
	}
	return !in.KnownLocation
}

func (d *Detector) isImpossibleTravel(in Input) bool {
	if !in.Location.Known() || in.LastLogin == nil || in.LastLogin.Country == "" {
		return false
	}
	if in.Location.Country == in.LastLogin.Country {
		return false
	}
	return in.Now.Sub(in.LastLogin.CreatedAt) < travelWindow
}
