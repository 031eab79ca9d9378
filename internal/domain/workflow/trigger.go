package workflow

// Trigger represents an event that can cause a stage transition
type Trigger string

const (
	// TriggerEdit is fired by any update that keeps the record open
	TriggerEdit Trigger = "EDIT"
	// TriggerClose is fired by an update that sets is_closed to true
	TriggerClose Trigger = "CLOSE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
