package journals

import "github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"

// Action names a lifecycle operation.
type Action string

const (
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
	ActionPost    Action = "post"
	ActionReverse Action = "reverse"
)

var transitions = map[Action]struct {
	from []Status
	to   Status
}{
	ActionUpdate:  {from: []Status{StatusDraft}, to: StatusDraft},
	ActionDelete:  {from: []Status{StatusDraft}},
	ActionSubmit:  {from: []Status{StatusDraft}, to: StatusPendingApproval},
	ActionApprove: {from: []Status{StatusDraft, StatusPendingApproval}, to: StatusApproved},
	ActionReject:  {from: []Status{StatusPendingApproval, StatusApproved}, to: StatusRejected},
	ActionCancel:  {from: []Status{StatusPendingApproval, StatusApproved}, to: StatusCancelled},
	ActionPost:    {from: []Status{StatusApproved}, to: StatusPosted},
	ActionReverse: {from: []Status{StatusPosted}, to: StatusPosted},
}

// Transition returns the status reached by applying action to current, or an
// InvalidStateError.
func Transition(current Status, action Action) (Status, error) {
	rule, ok := transitions[action]
	if ok {
		for _, s := range rule.from {
			if s == current {
				return rule.to, nil
			}
		}
	}
	return current, &shared.InvalidStateError{Status: string(current), Action: string(action)}
}
