package entity

import (
	"strings"
	"time"
)

// LocalizedText holds one value per supported language
type LocalizedText struct {
	EN string `json:"en"`
	ES string `json:"es"`
	ZH string `json:"zh"`
}

// Get returns the variant for lang, falling back to English when that slot is empty
func (t LocalizedText) Get(lang Language) string {
	var v string
	switch lang {
	case LangES:
		v = t.ES
	case LangZH:
		v = t.ZH
	default:
		v = t.EN
	}
	if v == "" {
		return t.EN
	}
	return v
}

// Set stores value in the slot for lang
func (t *LocalizedText) Set(lang Language, value string) {
	switch lang {
	case LangES:
		t.ES = value
	case LangZH:
		t.ZH = value
	default:
		t.EN = value
	}
}

// IsEmpty reports whether all three variants are blank
func (t LocalizedText) IsEmpty() bool {
	return strings.TrimSpace(t.EN) == "" &&
		strings.TrimSpace(t.ES) == "" &&
		strings.TrimSpace(t.ZH) == ""
}

// Record is a DMT defect report
type Record struct {
	ID           int64     `json:"id"`
	IsClosed     bool      `json:"is_closed"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedByID  int64     `json:"created_by_id"`
	ReportNumber *string   `json:"report_number"`

	// Section 1: General Information
	PartNumberID     *int64     `json:"part_number_id"`
	WorkCenterID     *int64     `json:"work_center_id"`
	CustomerID       *int64     `json:"customer_id"`
	LevelID          *int64     `json:"level_id"`
	AreaID           *int64     `json:"area_id"`
	PreparedByID     *int64     `json:"prepared_by_id"`
	Operation        *string    `json:"operation"`
	Quantity         *int       `json:"quantity"`
	SerialNumber     *string    `json:"serial_number"`
	Date             *time.Time `json:"date"`
	InspectionItemID *int64     `json:"inspection_item_id"`
	ProcessCodeID    *int64     `json:"process_code_id"`

	// Section 2: Defect Description
	DefectDescription LocalizedText `json:"defect_description"`

	// Section 3: Process Analysis
	ProcessDescription LocalizedText `json:"process_description"`
	Analysis           LocalizedText `json:"analysis"`
	AnalysisByID       *int64        `json:"analysis_by_id"`

	// Section 4: Engineering Disposition
	FinalDispositionID    *int64        `json:"final_disposition_id"`
	DispositionDate       *time.Time    `json:"disposition_date"`
	EngineerID            *int64        `json:"engineer_id"`
	FailureCodeID         *int64        `json:"failure_code_id"`
	ReworkHours           *float64      `json:"rework_hours"`
	ResponsibleDepartment *string       `json:"responsible_department"`
	MaterialScrapCost     *float64      `json:"material_scrap_cost"`
	OtherCost             *float64      `json:"other_cost"`
	EngineeringRemarks    LocalizedText `json:"engineering_remarks"`
	RepairProcess         LocalizedText `json:"repair_process"`

	// Section 5: Quality Closure
	DispositionApprovalDate *time.Time `json:"disposition_approval_date"`
	DispositionApprovedByID *int64     `json:"disposition_approved_by_id"`
	SDRNumber               *string    `json:"sdr_number"`
}

// Clone returns a copy of the record. Pointer members are shared; updates
// replace them rather than writing through them.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// Actor is a verified caller identity
type Actor struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

// User is a person referenced by records
type User struct {
	ID             int64  `json:"id"`
	EmployeeNumber string `json:"employee_number"`
	FullName       string `json:"full_name"`
	Role           Role   `json:"role"`
}

// RecordFilter narrows record listings
type RecordFilter struct {
	IsClosed      *bool
	CreatedByID   *int64
	PartNumberID  *int64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Skip          int
	Limit         int
}
