package payroll

// Action is a requested lifecycle change of a settlement.
type Action string

const (
	ActionRecompute Action = "recompute"
	ActionValidate  Action = "validate"
	ActionRevert    Action = "revert_to_draft"
	ActionMarkPaid  Action = "mark_paid"
)

// Transition returns the status a settlement moves to when action is applied
// in status from. Paid is terminal.
func Transition(from Status, action Action) (Status, error) {
	if from == StatusPaid {
		return from, ErrSettlementLocked
	}

	switch action {
	case ActionRecompute:
		if from == StatusValidated {
			return from, ErrSettlementAlreadyValidated
		}
		return StatusDraft, nil
	case ActionValidate:
		if from == StatusValidated {
			return from, ErrSettlementAlreadyValidated
		}
		return StatusValidated, nil
	case ActionRevert:
		if from != StatusValidated {
			return from, ErrSettlementNotValidated
		}
		return StatusDraft, nil
	case ActionMarkPaid:
		if from != StatusValidated {
			return from, ErrSettlementNotValidated
		}
		return StatusPaid, nil
	default:
		return from, ErrUnknownAction
	}
}
