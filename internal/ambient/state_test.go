package ambient

import "testing"

func TestStateMachineInitialState(t *testing.T) {
	sm := NewStateMachine()
	if sm.GetCurrentState() != LoadStateUnloaded {
		t.Errorf("expected initial state Unloaded, got %v", sm.GetCurrentState())
	}
}

func TestStateMachineValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []LoadState
	}{
		{
			name: "full load cycle",
			path: []LoadState{LoadStateLoadingFirst, LoadStateBackgroundLoading, LoadStateReady},
		},
		{
			name: "single asset pool skips background loading",
			path: []LoadState{LoadStateLoadingFirst, LoadStateReady},
		},
		{
			name: "refresh from ready",
			path: []LoadState{LoadStateLoadingFirst, LoadStateReady, LoadStateUnloaded},
		},
		{
			name: "refresh during background loading",
			path: []LoadState{LoadStateLoadingFirst, LoadStateBackgroundLoading, LoadStateUnloaded},
		},
		{
			name: "refresh during first load",
			path: []LoadState{LoadStateLoadingFirst, LoadStateUnloaded},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			for _, to := range tt.path {
				if !sm.Transition(to) {
					t.Fatalf("transition %v -> %v rejected", sm.GetCurrentState(), to)
				}
			}
		})
	}
}

func TestStateMachineInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from []LoadState
		to   LoadState
	}{
		{name: "unloaded cannot go ready", from: nil, to: LoadStateReady},
		{name: "unloaded cannot go background", from: nil, to: LoadStateBackgroundLoading},
		{name: "ready cannot go background", from: []LoadState{LoadStateLoadingFirst, LoadStateReady}, to: LoadStateBackgroundLoading},
		{name: "no self transition", from: []LoadState{LoadStateLoadingFirst}, to: LoadStateLoadingFirst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			for _, s := range tt.from {
				if !sm.Transition(s) {
					t.Fatalf("setup transition to %v rejected", s)
				}
			}
			before := sm.GetCurrentState()
			if sm.Transition(tt.to) {
				t.Errorf("transition %v -> %v should be rejected", before, tt.to)
			}
			if sm.GetCurrentState() != before {
				t.Errorf("rejected transition changed state to %v", sm.GetCurrentState())
			}
		})
	}
}

func TestLoadStateString(t *testing.T) {
	if LoadStateReady.String() != "Ready" {
		t.Errorf("unexpected string: %s", LoadStateReady.String())
	}
	if LoadState(99).String() != "Unknown" {
		t.Errorf("unexpected string for invalid state: %s", LoadState(99).String())
	}
}
