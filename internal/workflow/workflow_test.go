package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fincontrol/fincontrol/internal/rbac"
)

var testChain = Definition{
	Name: "test",
	Steps: []StepSpec{
		{Step: "FIRST", Status: "PENDING_FIRST", Roles: []rbac.Role{rbac.RoleOfficeOfContracting}},
		{Step: "SECOND", Status: "PENDING_SECOND", Roles: []rbac.Role{rbac.RolePresident}},
		{Step: "LAST", Status: "DONE"},
	},
	Rejected:  "REJECTED",
	Cancelled: "CANCELLED",
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		raw    string
		want   Action
		hasErr bool
	}{
		{raw: "aprovado", want: ActionApprove},
		{raw: "aprovado_parcial", want: ActionApprove},
		{raw: "rejeitado", want: ActionReject},
		{raw: "APROVADO", want: ActionApprove},
		{raw: "  Rejeitado  ", want: ActionReject},
		{raw: "approved", hasErr: true},
		{raw: "", hasErr: true},
		{raw: "aprovado parcial", hasErr: true},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.raw)
		if tc.hasErr {
			require.ErrorIs(t, err, ErrInvalidAction, "raw %q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw %q", tc.raw)
		require.Equal(t, tc.want, got, "raw %q", tc.raw)
	}
}

func TestDecideApproveAdvancesOneStep(t *testing.T) {
	next, err := testChain.Decide(testChain.Initial(), ActionApprove, rbac.RoleOfficeOfContracting)
	require.NoError(t, err)
	require.Equal(t, Step("SECOND"), next.Step)
	require.Equal(t, Status("PENDING_SECOND"), next.Status)

	next, err = testChain.Decide(next, ActionApprove, rbac.RolePresident)
	require.NoError(t, err)
	require.Equal(t, Step("LAST"), next.Step)
	require.Equal(t, Status("DONE"), next.Status)
}

func TestDecideRejectKeepsStep(t *testing.T) {
	state := State{Step: "SECOND", Status: "PENDING_SECOND"}
	next, err := testChain.Decide(state, ActionReject, rbac.RolePresident)
	require.NoError(t, err)
	require.Equal(t, Step("SECOND"), next.Step)
	require.Equal(t, Status("REJECTED"), next.Status)
}

func TestDecideTerminalStates(t *testing.T) {
	for _, status := range []Status{"DONE", "REJECTED", "CANCELLED"} {
		_, err := testChain.Decide(State{Step: "SECOND", Status: status}, ActionApprove, rbac.RoleAdmin)
		require.ErrorIs(t, err, ErrTerminal, "status %q", status)
	}
}

func TestDecideAuthorizationCheckedBeforeAction(t *testing.T) {
	// Wrong role at a valid step fails with ErrUnauthorized even when the
	// action itself is also invalid.
	_, err := testChain.Decide(testChain.Initial(), Action("BOGUS"), rbac.RoleFinance)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Correct role with a bad action fails on the action.
	_, err = testChain.Decide(testChain.Initial(), Action("BOGUS"), rbac.RoleOfficeOfContracting)
	require.ErrorIs(t, err, ErrInvalidAction)
}

func TestDecideUnknownStep(t *testing.T) {
	_, err := testChain.Decide(State{Step: "NOWHERE", Status: "PENDING_FIRST"}, ActionApprove, rbac.RoleAdmin)
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestDecideAdminBypassesStepRoles(t *testing.T) {
	next, err := testChain.Decide(testChain.Initial(), ActionApprove, rbac.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, Step("SECOND"), next.Step)
}

func TestCancel(t *testing.T) {
	next, err := testChain.Cancel(testChain.Initial())
	require.NoError(t, err)
	require.Equal(t, Status("CANCELLED"), next.Status)
	require.Equal(t, Step("FIRST"), next.Step)

	_, err = testChain.Cancel(State{Step: "SECOND", Status: "REJECTED"})
	require.ErrorIs(t, err, ErrTerminal)
}

func TestValidate(t *testing.T) {
	require.NoError(t, testChain.Validate())

	dup := testChain
	dup.Steps = append([]StepSpec{}, testChain.Steps...)
	dup.Steps[1] = StepSpec{Step: "FIRST", Status: "OTHER"}
	require.Error(t, dup.Validate())

	clash := testChain
	clash.Rejected = "DONE"
	require.Error(t, clash.Validate())

	short := Definition{Name: "short", Steps: testChain.Steps[:1], Rejected: "R", Cancelled: "C"}
	require.Error(t, short.Validate())
}
