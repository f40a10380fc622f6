package entity

// Action is the pending multi-step interaction a user is mid-way through.
// Exactly one action may be outstanding per user; the next free-text message
// from that user consumes it, whatever the outcome.
type Action string

const (
	ActionNone       Action = ""
	ActionAddCode    Action = "add_code"
	ActionDeleteCode Action = "delete_code"
	ActionManageUser Action = "manage_user"
	ActionCheckCode  Action = "check_code"
)

// AdminOnly reports whether the action may only be started by the administrator.
func (a Action) AdminOnly() bool {
	switch a {
	case ActionAddCode, ActionDeleteCode, ActionManageUser:
		return true
	}
	return false
}
