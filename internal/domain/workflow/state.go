package workflow

// Stage is the lifecycle position of a record, derived from its contents
type Stage string

const (
	StageCreated       Stage = "CREATED"
	StageDefectLogged  Stage = "DEFECT_LOGGED"
	StageAnalyzed      Stage = "ANALYZED"
	StageDispositioned Stage = "DISPOSITIONED"
	StageClosed        Stage = "CLOSED"
)

// OpenStages lists every stage a record can be edited in
var OpenStages = []Stage{
	StageCreated,
	StageDefectLogged,
	StageAnalyzed,
	StageDispositioned,
}

// IsTerminal returns true if the stage allows no further transitions
func (s Stage) IsTerminal() bool {
	return s == StageClosed
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a known record stage
func (s Stage) IsValid() bool {
	switch s {
	case StageCreated, StageDefectLogged, StageAnalyzed, StageDispositioned, StageClosed:
		return true
	}
	return false
}
