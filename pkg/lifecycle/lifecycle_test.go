package lifecycle

import "testing"

func TestCanTransitionAllowsDocumentedEdges(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatePending, StateComputingCommitment, true},
		{StatePending, StateFailedEvidence, true},
		{StatePending, StateValid, false},
		{StateComputingCommitment, StateGeneratingProof, true},
		{StateGeneratingProof, StateAssemblingPackage, true},
		{StateAssemblingPackage, StateAnchoring, true},
		{StateAssemblingPackage, StateValid, true},
		{StateAnchoring, StateValid, true},
		{StateAnchoring, StateFailedAnchor, true},
		{StateValid, StateRevoked, true},
		{StateValid, StateExpired, true},
		{StateValid, StateFailed, false},
		{StateFailed, StateValid, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []string{StateValid, StateRevoked, StateExpired, StateFailedEvidence, StateFailedProof, StateFailedAnchor, StateFailed}
	for _, s := range terminal {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	nonTerminal := []string{StatePending, StateComputingCommitment, StateGeneratingProof, StateAssemblingPackage, StateAnchoring}
	for _, s := range nonTerminal {
		if IsTerminal(s) {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestOnlyValidTerminalStateHasOutgoingEdges(t *testing.T) {
	for state := range terminalStates {
		edges := transitions[state]
		if state == StateValid {
			if len(edges) != 2 || !edges[StateRevoked] || !edges[StateExpired] {
				t.Errorf("valid must have exactly the revoked and expired edges, got %v", edges)
			}
			continue
		}
		if len(edges) > 0 {
			t.Errorf("terminal state %s has outgoing edges: %v", state, edges)
		}
	}
}
