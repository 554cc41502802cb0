// Package notify is the external notification sink from SPEC_FULL §6,
// generalized away from the teacher's SMS-specific internal/sms client since
// this domain has no phone-number invite flow — only a logging stub is
// required, kept behind the same package-level Default/SetDefault swap point
// so a future real sink (push notification, email) can be wired in later
// without touching call sites.
package notify

import "log"

// Sink delivers an out-of-band notification to a user.
type Sink interface {
	Notify(userID int, kind string, payload map[string]interface{}) error
}

// Default is the package-level sink used by callers that don't hold their
// own reference, mirroring sms.Default/SetDefault.
var Default Sink = loggingSink{}

func SetDefault(s Sink) { Default = s }

type loggingSink struct{}

func (loggingSink) Notify(userID int, kind string, payload map[string]interface{}) error {
	log.Printf("[NOTIFY] user=%d kind=%s payload=%v", userID, kind, payload)
	return nil
}
