package event

// Type identifies the type of record lifecycle event
type Type string

const (
	TypeRecordCreated Type = "record.created"
	TypeRecordUpdated Type = "record.updated"
	TypeRecordClosed  Type = "record.closed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRecordCreated,
		TypeRecordUpdated,
		TypeRecordClosed:
		return true
	default:
		return false
	}
}
