package entity

import (
	"fmt"
	"net/http"
	"time"

	"codegate/lib/clock"
	"codegate/lib/validate"
)

const (
	// ValidityDays is the window after creation during which a code may be used.
	ValidityDays = 30
	// RetentionDays is the window after which a code is purged regardless of state.
	RetentionDays = 60
)

// Code is a single-use, time-limited access code issued by the administrator.
// Adding an existing code again is an intentional idempotent reset: AddedAt is
// overwritten and Used goes back to false.
type Code struct {
	Code    string    `json:"code" bson:"code" validate:"required,min=1"`
	AddedAt time.Time `json:"added_at" bson:"added_at"`
	Used    bool      `json:"used" bson:"used"`
}

func (c *Code) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// CodeState is the derived lifecycle state of a code. It is never stored;
// it is computed from AddedAt and Used against the current time.
type CodeState string

const (
	StateActive  CodeState = "active"
	StateExpired CodeState = "expired"
	StateUsed    CodeState = "used"
)

type CodeStatus struct {
	State    CodeState `json:"state"`
	DaysLeft int       `json:"days_left"`
}

// Status derives the code state at the given moment.
// Used wins over expiry; an unused code expires once ValidityDays have elapsed.
func (c *Code) Status(now time.Time) CodeStatus {
	if c.Used {
		return CodeStatus{State: StateUsed}
	}
	daysLeft := ValidityDays - clock.Days(c.AddedAt, now)
	if daysLeft <= 0 {
		return CodeStatus{State: StateExpired}
	}
	return CodeStatus{State: StateActive, DaysLeft: daysLeft}
}

// Usable reports whether the code may still be marked used at the given moment.
func (c *Code) Usable(now time.Time) bool {
	return c.Status(now).State == StateActive
}

// Label renders the status for chat replies, e.g. "ACTIVE - 12 days left".
func (s CodeStatus) Label() string {
	switch s.State {
	case StateUsed:
		return "USED"
	case StateExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("ACTIVE - %d days left", s.DaysLeft)
	}
}
