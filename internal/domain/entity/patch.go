package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Optional is a change-set member that distinguishes an absent key from an
// explicit null. Set is true whenever the key appeared in the input.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a present Optional carrying an explicit null
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON marks the value as present and decodes it, keeping null as nil
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON encodes the value, or null when absent or cleared
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// DateTime accepts RFC 3339 timestamps as well as bare dates
type DateTime struct {
	time.Time
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses any of the accepted layouts into a UTC time
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q as a date or timestamp", ErrInvalidInput, s)
}

// UnmarshalJSON decodes a JSON string date
func (d *DateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON encodes the time as RFC 3339
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Patch is a partial change set for a record. Free-text members carry a
// single input string that is expanded into three languages on write.
type Patch struct {
	PartNumberID     Optional[int64]    `json:"part_number_id"`
	WorkCenterID     Optional[int64]    `json:"work_center_id"`
	CustomerID       Optional[int64]    `json:"customer_id"`
	LevelID          Optional[int64]    `json:"level_id"`
	AreaID           Optional[int64]    `json:"area_id"`
	PreparedByID     Optional[int64]    `json:"prepared_by_id"`
	Operation        Optional[string]   `json:"operation"`
	Quantity         Optional[int]      `json:"quantity"`
	SerialNumber     Optional[string]   `json:"serial_number"`
	Date             Optional[DateTime] `json:"date"`
	InspectionItemID Optional[int64]    `json:"inspection_item_id"`
	ProcessCodeID    Optional[int64]    `json:"process_code_id"`
	ReportNumber     Optional[string]   `json:"report_number"`

	DefectDescription Optional[string] `json:"defect_description"`

	ProcessDescription Optional[string] `json:"process_description"`
	Analysis           Optional[string] `json:"analysis"`
	AnalysisByID       Optional[int64]  `json:"analysis_by_id"`

	FinalDispositionID    Optional[int64]    `json:"final_disposition_id"`
	DispositionDate       Optional[DateTime] `json:"disposition_date"`
	EngineerID            Optional[int64]    `json:"engineer_id"`
	FailureCodeID         Optional[int64]    `json:"failure_code_id"`
	ReworkHours           Optional[float64]  `json:"rework_hours"`
	ResponsibleDepartment Optional[string]   `json:"responsible_department"`
	MaterialScrapCost     Optional[float64]  `json:"material_scrap_cost"`
	OtherCost             Optional[float64]  `json:"other_cost"`
	EngineeringRemarks    Optional[string]   `json:"engineering_remarks"`
	RepairProcess         Optional[string]   `json:"repair_process"`

	DispositionApprovalDate Optional[DateTime] `json:"disposition_approval_date"`
	DispositionApprovedByID Optional[int64]    `json:"disposition_approved_by_id"`
	SDRNumber               Optional[string]   `json:"sdr_number"`
	IsClosed                Optional[bool]     `json:"is_closed"`
}

// DecodePatch reads a JSON change set. Unknown keys are rejected.
func DecodePatch(r io.Reader) (*Patch, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var p Patch
	if err := dec.Decode(&p); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty change set body", ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks value-level constraints that do not depend on stored state
func (p *Patch) Validate() error {
	if p.IsClosed.Set && p.IsClosed.Value == nil {
		return fmt.Errorf("%w: is_closed cannot be null", ErrInvalidInput)
	}
	if p.Quantity.Value != nil && *p.Quantity.Value < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Fields returns the present fields in canonical order
func (p *Patch) Fields() []Field {
	var fields []Field
	for _, b := range bindings {
		if b.present(p) {
			fields = append(fields, b.field)
		}
	}
	return fields
}

// Has reports whether the field is present with a non-null, non-blank value
func (p *Patch) Has(f Field) bool {
	b, ok := bindingIndex[f]
	return ok && b.filled(p)
}

// Clears reports whether the field is present with a null or blank value
func (p *Patch) Clears(f Field) bool {
	b, ok := bindingIndex[f]
	return ok && b.present(p) && !b.filled(p)
}

// Missing returns the fields from required that Has does not report
func (p *Patch) Missing(required []Field) []Field {
	var missing []Field
	for _, f := range required {
		if !p.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// ClosesRecord reports whether the change set sets is_closed to true
func (p *Patch) ClosesRecord() bool {
	return p.IsClosed.Value != nil && *p.IsClosed.Value
}

// TextInput is a free-text member awaiting translation
type TextInput struct {
	Field Field
	Text  string
}

// TextInputs returns the free-text members that carry a non-blank value.
// Present but blank or null text members leave the stored triplet untouched.
func (p *Patch) TextInputs() []TextInput {
	var inputs []TextInput
	for _, b := range bindings {
		if b.slot == nil || !b.filled(p) {
			continue
		}
		inputs = append(inputs, TextInput{Field: b.field, Text: *b.text(p).Value})
	}
	return inputs
}

// ApplyDirect assigns every present non-text member onto r verbatim
func (p *Patch) ApplyDirect(r *Record) {
	for _, b := range bindings {
		if b.assign != nil && b.present(p) {
			b.assign(p, r)
		}
	}
}

// SetText writes a translated triplet into the record slot for f
func SetText(r *Record, f Field, text LocalizedText) error {
	b, ok := bindingIndex[f]
	if !ok || b.slot == nil {
		return fmt.Errorf("%w: %s is not a free-text field", ErrInvalidInput, f)
	}
	*b.slot(r) = text
	return nil
}

// binding ties one Field to its Patch member and Record attribute.
// Exactly one of assign or slot is set.
type binding struct {
	field   Field
	present func(*Patch) bool
	filled  func(*Patch) bool
	assign  func(*Patch, *Record)
	text    func(*Patch) Optional[string]
	slot    func(*Record) *LocalizedText
}

func direct[T any](f Field, member func(*Patch) *Optional[T], attr func(*Record) **T) binding {
	return binding{
		field:   f,
		present: func(p *Patch) bool { return member(p).Set },
		filled: func(p *Patch) bool {
			v := member(p).Value
			if v == nil {
				return false
			}
			if s, ok := any(*v).(string); ok {
				return strings.TrimSpace(s) != ""
			}
			return true
		},
		assign: func(p *Patch, r *Record) { *attr(r) = member(p).Value },
	}
}

func dated(f Field, member func(*Patch) *Optional[DateTime], attr func(*Record) **time.Time) binding {
	return binding{
		field:   f,
		present: func(p *Patch) bool { return member(p).Set },
		filled:  func(p *Patch) bool { return member(p).Value != nil },
		assign: func(p *Patch, r *Record) {
			if v := member(p).Value; v != nil {
				t := v.Time
				*attr(r) = &t
				return
			}
			*attr(r) = nil
		},
	}
}

func localized(f Field, member func(*Patch) *Optional[string], attr func(*Record) *LocalizedText) binding {
	return binding{
		field:   f,
		present: func(p *Patch) bool { return member(p).Set },
		filled: func(p *Patch) bool {
			v := member(p).Value
			return v != nil && strings.TrimSpace(*v) != ""
		},
		text: func(p *Patch) Optional[string] { return *member(p) },
		slot: attr,
	}
}

var bindings = []binding{
	direct(FieldPartNumberID, func(p *Patch) *Optional[int64] { return &p.PartNumberID }, func(r *Record) **int64 { return &r.PartNumberID }),
	direct(FieldWorkCenterID, func(p *Patch) *Optional[int64] { return &p.WorkCenterID }, func(r *Record) **int64 { return &r.WorkCenterID }),
	direct(FieldCustomerID, func(p *Patch) *Optional[int64] { return &p.CustomerID }, func(r *Record) **int64 { return &r.CustomerID }),
	direct(FieldLevelID, func(p *Patch) *Optional[int64] { return &p.LevelID }, func(r *Record) **int64 { return &r.LevelID }),
	direct(FieldAreaID, func(p *Patch) *Optional[int64] { return &p.AreaID }, func(r *Record) **int64 { return &r.AreaID }),
	direct(FieldPreparedByID, func(p *Patch) *Optional[int64] { return &p.PreparedByID }, func(r *Record) **int64 { return &r.PreparedByID }),
	direct(FieldOperation, func(p *Patch) *Optional[string] { return &p.Operation }, func(r *Record) **string { return &r.Operation }),
	direct(FieldQuantity, func(p *Patch) *Optional[int] { return &p.Quantity }, func(r *Record) **int { return &r.Quantity }),
	direct(FieldSerialNumber, func(p *Patch) *Optional[string] { return &p.SerialNumber }, func(r *Record) **string { return &r.SerialNumber }),
	dated(FieldDate, func(p *Patch) *Optional[DateTime] { return &p.Date }, func(r *Record) **time.Time { return &r.Date }),
	direct(FieldInspectionItemID, func(p *Patch) *Optional[int64] { return &p.InspectionItemID }, func(r *Record) **int64 { return &r.InspectionItemID }),
	direct(FieldProcessCodeID, func(p *Patch) *Optional[int64] { return &p.ProcessCodeID }, func(r *Record) **int64 { return &r.ProcessCodeID }),
	direct(FieldReportNumber, func(p *Patch) *Optional[string] { return &p.ReportNumber }, func(r *Record) **string { return &r.ReportNumber }),

	localized(FieldDefectDescription, func(p *Patch) *Optional[string] { return &p.DefectDescription }, func(r *Record) *LocalizedText { return &r.DefectDescription }),

	localized(FieldProcessDescription, func(p *Patch) *Optional[string] { return &p.ProcessDescription }, func(r *Record) *LocalizedText { return &r.ProcessDescription }),
	localized(FieldAnalysis, func(p *Patch) *Optional[string] { return &p.Analysis }, func(r *Record) *LocalizedText { return &r.Analysis }),
	direct(FieldAnalysisByID, func(p *Patch) *Optional[int64] { return &p.AnalysisByID }, func(r *Record) **int64 { return &r.AnalysisByID }),

	direct(FieldFinalDispositionID, func(p *Patch) *Optional[int64] { return &p.FinalDispositionID }, func(r *Record) **int64 { return &r.FinalDispositionID }),
	dated(FieldDispositionDate, func(p *Patch) *Optional[DateTime] { return &p.DispositionDate }, func(r *Record) **time.Time { return &r.DispositionDate }),
	direct(FieldEngineerID, func(p *Patch) *Optional[int64] { return &p.EngineerID }, func(r *Record) **int64 { return &r.EngineerID }),
	direct(FieldFailureCodeID, func(p *Patch) *Optional[int64] { return &p.FailureCodeID }, func(r *Record) **int64 { return &r.FailureCodeID }),
	direct(FieldReworkHours, func(p *Patch) *Optional[float64] { return &p.ReworkHours }, func(r *Record) **float64 { return &r.ReworkHours }),
	direct(FieldResponsibleDepartment, func(p *Patch) *Optional[string] { return &p.ResponsibleDepartment }, func(r *Record) **string { return &r.ResponsibleDepartment }),
	direct(FieldMaterialScrapCost, func(p *Patch) *Optional[float64] { return &p.MaterialScrapCost }, func(r *Record) **float64 { return &r.MaterialScrapCost }),
	direct(FieldOtherCost, func(p *Patch) *Optional[float64] { return &p.OtherCost }, func(r *Record) **float64 { return &r.OtherCost }),
	localized(FieldEngineeringRemarks, func(p *Patch) *Optional[string] { return &p.EngineeringRemarks }, func(r *Record) *LocalizedText { return &r.EngineeringRemarks }),
	localized(FieldRepairProcess, func(p *Patch) *Optional[string] { return &p.RepairProcess }, func(r *Record) *LocalizedText { return &r.RepairProcess }),

	dated(FieldDispositionApprovalDate, func(p *Patch) *Optional[DateTime] { return &p.DispositionApprovalDate }, func(r *Record) **time.Time { return &r.DispositionApprovalDate }),
	direct(FieldDispositionApprovedByID, func(p *Patch) *Optional[int64] { return &p.DispositionApprovedByID }, func(r *Record) **int64 { return &r.DispositionApprovedByID }),
	direct(FieldSDRNumber, func(p *Patch) *Optional[string] { return &p.SDRNumber }, func(r *Record) **string { return &r.SDRNumber }),
	{
		field:   FieldIsClosed,
		present: func(p *Patch) bool { return p.IsClosed.Set },
		filled:  func(p *Patch) bool { return p.IsClosed.Value != nil },
		assign: func(p *Patch, r *Record) {
			if p.IsClosed.Value != nil {
				r.IsClosed = *p.IsClosed.Value
			}
		},
	},
}

var bindingIndex = indexBindings(bindings)

func indexBindings(bs []binding) map[Field]binding {
	idx := make(map[Field]binding, len(bs))
	for _, b := range bs {
		if _, dup := idx[b.field]; dup {
			panic(fmt.Sprintf("duplicate field binding: %s", b.field))
		}
		idx[b.field] = b
	}
	return idx
}
