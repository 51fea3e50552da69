package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		want   Status
		err    error
	}{
		{StatusDraft, ActionRecompute, StatusDraft, nil},
		{StatusDraft, ActionValidate, StatusValidated, nil},
		{StatusDraft, ActionRevert, StatusDraft, ErrSettlementNotValidated},
		{StatusDraft, ActionMarkPaid, StatusDraft, ErrSettlementNotValidated},
		{StatusValidated, ActionRecompute, StatusValidated, ErrSettlementAlreadyValidated},
		{StatusValidated, ActionValidate, StatusValidated, ErrSettlementAlreadyValidated},
		{StatusValidated, ActionRevert, StatusDraft, nil},
		{StatusValidated, ActionMarkPaid, StatusPaid, nil},
		{StatusPaid, ActionRecompute, StatusPaid, ErrSettlementLocked},
		{StatusPaid, ActionValidate, StatusPaid, ErrSettlementLocked},
		{StatusPaid, ActionRevert, StatusPaid, ErrSettlementLocked},
		{StatusPaid, ActionMarkPaid, StatusPaid, ErrSettlementLocked},
		{StatusDraft, Action("archive"), StatusDraft, ErrUnknownAction},
	}

	for _, c := range cases {
		got, err := Transition(c.from, c.action)
		assert.Equal(t, c.want, got, "%s + %s", c.from, c.action)
		if c.err != nil {
			assert.ErrorIs(t, err, c.err, "%s + %s", c.from, c.action)
			assert.True(t, IsStateConflict(err) || c.err == ErrUnknownAction)
		} else {
			assert.NoError(t, err, "%s + %s", c.from, c.action)
		}
	}
}
