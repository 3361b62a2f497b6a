package auth

import "strings"

// Fingerprint is the (browser, OS, device type) tuple derived from a user
// agent string. It distinguishes "known" from "new" devices in the
// suspicious-activity comparison; it is not an authentication factor.
type Fingerprint struct {
	Browser    string
	OS         string
	DeviceType string
}

// Key returns the stable comparison key for the fingerprint
func (f Fingerprint) Key() string {
	return f.Browser + "/" + f.OS + "/" + f.DeviceType
}

// DeviceName returns a human-readable label for notification emails
func (f Fingerprint) DeviceName() string {
	return f.Browser + " on " + f.OS
}

// ParseUserAgent extracts browser, OS, and device type from a user agent
func ParseUserAgent(userAgent string) Fingerprint {
	if userAgent == "" {
		return Fingerprint{Browser: "Unknown", OS: "Unknown", DeviceType: "unknown"}
	}

	ua := strings.ToLower(userAgent)
	fp := Fingerprint{}

	switch {
	case strings.Contains(ua, "firefox"):
		fp.Browser = "Firefox"
	case strings.Contains(ua, "edg"):
		fp.Browser = "Edge"
	case strings.Contains(ua, "opr") || strings.Contains(ua, "opera"):
		fp.Browser = "Opera"
	case strings.Contains(ua, "chrome") || strings.Contains(ua, "chromium"):
		fp.Browser = "Chrome"
	case strings.Contains(ua, "safari"):
		fp.Browser = "Safari"
	default:
		fp.Browser = "Unknown"
	}

	switch {
	case strings.Contains(ua, "iphone"):
		fp.OS = "iOS"
		fp.DeviceType = "mobile"
	case strings.Contains(ua, "ipad"):
		fp.OS = "iPadOS"
		fp.DeviceType = "tablet"
	case strings.Contains(ua, "android"):
		fp.OS = "Android"
		if strings.Contains(ua, "mobile") {
			fp.DeviceType = "mobile"
		} else {
			fp.DeviceType = "tablet"
		}
	case strings.Contains(ua, "windows"):
		fp.OS = "Windows"
		fp.DeviceType = "desktop"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		fp.OS = "macOS"
		fp.DeviceType = "desktop"
	case strings.Contains(ua, "cros"):
		fp.OS = "ChromeOS"
		fp.DeviceType = "desktop"
	case strings.Contains(ua, "linux"):
		fp.OS = "Linux"
		fp.DeviceType = "desktop"
	default:
		fp.OS = "Unknown"
		fp.DeviceType = "unknown"
	}

	return fp
}
