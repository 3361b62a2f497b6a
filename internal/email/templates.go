package email

import (
	"fmt"
	"strings"
	"time"
)

func codeEmailHTML(title, intro, code string, ttlMinutes int, appName string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background-color:#f4f5f7;">
<table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f4f5f7;padding:40px 0;">
<tr><td align="center">
<table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;overflow:hidden;box-shadow:0 2px 8px rgba(0,0,0,0.08);">
  <tr><td style="padding:32px 40px 24px;text-align:center;">
    <h1 style="margin:0;font-size:24px;color:#1a1a2e;">%s</h1>
  </td></tr>
  <tr><td style="padding:0 40px;">
    <p style="margin:0 0 24px;font-size:15px;color:#4a4a68;line-height:1.6;">%s</p>
  </td></tr>
  <tr><td style="padding:0 40px;text-align:center;">
    <div style="display:inline-block;background-color:#f0f0ff;border:2px dashed #6c63ff;border-radius:8px;padding:16px 40px;margin:0 0 24px;">
      <span style="font-family:'Courier New',monospace;font-size:36px;font-weight:bold;letter-spacing:8px;color:#1a1a2e;">%s</span>
    </div>
  </td></tr>
  <tr><td style="padding:0 40px 32px;">
    <p style="margin:0;font-size:13px;color:#8888a0;line-height:1.5;">
      This code expires in <strong>%d minutes</strong>. If you didn't request it, you can safely ignore this email.
    </p>
  </td></tr>
  <tr><td style="padding:16px 40px;background-color:#f9f9fc;border-top:1px solid #eeeef2;">
    <p style="margin:0;font-size:12px;color:#aaaabc;text-align:center;">
      &copy; %s &mdash; This is an automated message, please do not reply.
    </p>
  </td></tr>
</table>
</td></tr>
</table>
</body>
</html>`, title, title, intro, code, ttlMinutes, appName)
}

// TwoFactorEmail builds the login one-time code message
func TwoFactorEmail(to, code, appName string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	intro := fmt.Sprintf("Someone is signing in to your <strong>%s</strong> account. Enter this code to continue. If this wasn't you, change your password now.", appName)
	return Message{
		To:       to,
		Subject:  fmt.Sprintf("%s is your %s sign-in code", code, appName),
		HTMLBody: codeEmailHTML("Your sign-in code", intro, code, minutes, appName),
		TextBody: fmt.Sprintf(`Your sign-in code

Someone is signing in to your %s account. Enter this code to continue:

%s

This code expires in %d minutes. If this wasn't you, change your password now.

- %s`, appName, code, minutes, appName),
	}
}

// VerificationEmail builds the registration verification code message
func VerificationEmail(to, code, appName string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	intro := fmt.Sprintf("Thanks for signing up for <strong>%s</strong>! Use the verification code below to complete your registration.", appName)
	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Verify your %s email", appName),
		HTMLBody: codeEmailHTML("Verify your email", intro, code, minutes, appName),
		TextBody: fmt.Sprintf(`Verify your email

Thanks for signing up for %s! Your verification code: %s

This code expires in %d minutes. If you didn't create an account, you can safely ignore this email.

- %s`, appName, code, minutes, appName),
	}
}

// PasswordResetEmail builds the reset-link message
func PasswordResetEmail(to, resetURL, appName string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Reset your %s password", appName),
		HTMLBody: fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="margin:0;padding:40px;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background-color:#f4f5f7;">
<div style="max-width:480px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px 40px;">
  <h1 style="margin:0 0 16px;font-size:22px;color:#1a1a2e;">Reset your password</h1>
  <p style="margin:0 0 24px;font-size:15px;color:#4a4a68;line-height:1.6;">
    We received a request to reset the password for your %s account. Click the button below to choose a new one.
  </p>
  <p style="text-align:center;margin:0 0 24px;">
    <a href="%s" style="display:inline-block;background:#6c63ff;color:#ffffff;text-decoration:none;padding:12px 32px;border-radius:6px;font-size:15px;">Reset password</a>
  </p>
  <p style="margin:0;font-size:13px;color:#8888a0;line-height:1.5;">
    This link expires in %d minutes. If you didn't request a reset, your password is unchanged and you can ignore this email.
  </p>
</div>
</body>
</html>`, appName, resetURL, minutes),
		TextBody: fmt.Sprintf(`Reset your password

We received a request to reset the password for your %s account. Open this link to choose a new one:

%s

This link expires in %d minutes. If you didn't request a reset, your password is unchanged and you can ignore this email.

- %s`, appName, resetURL, minutes, appName),
	}
}

// SuspiciousLoginEmail notifies the account owner of a flagged sign-in
func SuspiciousLoginEmail(to, appName, deviceName, city, country, ipAddress string, reasons []string, at time.Time) Message {
	location := formatLocation(city, country)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("New sign-in to your %s account", appName),
		TextBody: fmt.Sprintf(`New sign-in to your %s account

We noticed a sign-in that looks different from your usual activity:

  Time:     %s
  Device:   %s
  Location: %s
  IP:       %s
  Flagged:  %s

If this was you, no action is needed. If not, change your password and sign out of all devices from your account settings.

- %s`, appName, at.UTC().Format(time.RFC1123), deviceName, location, ipAddress, strings.Join(reasons, ", "), appName),
	}
}

// AdminSuspiciousLoginEmail alerts operations about a flagged sign-in
func AdminSuspiciousLoginEmail(to, appName, userEmail, deviceName, city, country, ipAddress string, reasons []string, at time.Time) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] Suspicious sign-in for %s", appName, userEmail),
		TextBody: fmt.Sprintf(`Suspicious sign-in detected

  User:     %s
  Time:     %s
  Device:   %s
  Location: %s
  IP:       %s
  Signals:  %s
`, userEmail, at.UTC().Format(time.RFC1123), deviceName, formatLocation(city, country), ipAddress, strings.Join(reasons, ", ")),
	}
}

func formatLocation(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case country != "":
		return country
	default:
		return "Unknown"
	}
}
