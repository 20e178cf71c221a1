package workflow

// State is a step of the deposit workflow.
type State string

const (
	StateSelectingAsset   State = "selecting_asset"
	StateNeedsAssociation State = "needs_association"
	StateReadyToBuild     State = "ready_to_build"
	StateBuilding         State = "building"
	StateSubmitting       State = "submitting"
	StateConfirming       State = "confirming"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
)

// Busy reports whether a deposit is in flight. No second deposit may start
// while it is.
func (s State) Busy() bool {
	return s == StateBuilding || s == StateSubmitting || s == StateConfirming
}

// Terminal reports whether the last deposit attempt has finished.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) String() string {
	return string(s)
}
