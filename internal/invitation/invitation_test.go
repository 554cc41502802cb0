package invitation

import "testing"

func TestGroupIsPerUser(t *testing.T) {
	if g := Group(42); g != "invitations:42" {
		t.Errorf("Group(42) = %q, want %q", g, "invitations:42")
	}
	if Group(1) == Group(2) {
		t.Error("two different users should not share an invitations group")
	}
}
