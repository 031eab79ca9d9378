package entity

// Field names a writable record attribute as it appears in change sets
type Field string

// Section 1: General Information
const (
	FieldPartNumberID     Field = "part_number_id"
	FieldWorkCenterID     Field = "work_center_id"
	FieldCustomerID       Field = "customer_id"
	FieldLevelID          Field = "level_id"
	FieldAreaID           Field = "area_id"
	FieldPreparedByID     Field = "prepared_by_id"
	FieldOperation        Field = "operation"
	FieldQuantity         Field = "quantity"
	FieldSerialNumber     Field = "serial_number"
	FieldDate             Field = "date"
	FieldInspectionItemID Field = "inspection_item_id"
	FieldProcessCodeID    Field = "process_code_id"
	FieldReportNumber     Field = "report_number"
)

// Section 2: Defect Description
const (
	FieldDefectDescription Field = "defect_description"
)

// Section 3: Process Analysis
const (
	FieldProcessDescription Field = "process_description"
	FieldAnalysis           Field = "analysis"
	FieldAnalysisByID       Field = "analysis_by_id"
)

// Section 4: Engineering Disposition
const (
	FieldFinalDispositionID    Field = "final_disposition_id"
	FieldDispositionDate       Field = "disposition_date"
	FieldEngineerID            Field = "engineer_id"
	FieldFailureCodeID         Field = "failure_code_id"
	FieldReworkHours           Field = "rework_hours"
	FieldResponsibleDepartment Field = "responsible_department"
	FieldMaterialScrapCost     Field = "material_scrap_cost"
	FieldOtherCost             Field = "other_cost"
	FieldEngineeringRemarks    Field = "engineering_remarks"
	FieldRepairProcess         Field = "repair_process"
)

// Section 5: Quality Closure
const (
	FieldDispositionApprovalDate Field = "disposition_approval_date"
	FieldDispositionApprovedByID Field = "disposition_approved_by_id"
	FieldSDRNumber               Field = "sdr_number"
	FieldIsClosed                Field = "is_closed"
)

// AllFields lists every writable field in canonical order
func AllFields() []Field {
	fields := make([]Field, len(bindings))
	for i, b := range bindings {
		fields[i] = b.field
	}
	return fields
}

// IsText reports whether the field is stored as a LocalizedText triplet
func (f Field) IsText() bool {
	b, ok := bindingIndex[f]
	return ok && b.slot != nil
}

// IsValid reports whether the field is a known writable attribute
func (f Field) IsValid() bool {
	_, ok := bindingIndex[f]
	return ok
}

// String returns the string representation of the field
func (f Field) String() string {
	return string(f)
}
