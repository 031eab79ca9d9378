package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// recordRow holds the scan targets for one dmt_records row
type recordRow struct {
	id           int64
	isClosed     bool
	createdAt    time.Time
	createdByID  int64
	reportNumber sql.NullString

	partNumberID     sql.NullInt64
	workCenterID     sql.NullInt64
	customerID       sql.NullInt64
	levelID          sql.NullInt64
	areaID           sql.NullInt64
	preparedByID     sql.NullInt64
	operation        sql.NullString
	quantity         sql.NullInt64
	serialNumber     sql.NullString
	date             sql.NullTime
	inspectionItemID sql.NullInt64
	processCodeID    sql.NullInt64

	defectDescription  [3]sql.NullString
	processDescription [3]sql.NullString
	analysis           [3]sql.NullString
	analysisByID       sql.NullInt64

	finalDispositionID    sql.NullInt64
	dispositionDate       sql.NullTime
	engineerID            sql.NullInt64
	failureCodeID         sql.NullInt64
	reworkHours           sql.NullFloat64
	responsibleDepartment sql.NullString
	materialScrapCost     sql.NullFloat64
	otherCost             sql.NullFloat64
	engineeringRemarks    [3]sql.NullString
	repairProcess         [3]sql.NullString

	dispositionApprovalDate sql.NullTime
	dispositionApprovedByID sql.NullInt64
	sdrNumber               sql.NullString
}

// recordColumn binds a dmt_records column to its write value and scan target
type recordColumn struct {
	name  string
	value func(*entity.Record) interface{}
	dest  func(*recordRow) interface{}
}

func textColumns(base string, text func(*entity.Record) *entity.LocalizedText, slots func(*recordRow) *[3]sql.NullString) []recordColumn {
	cols := make([]recordColumn, 0, len(entity.Languages))
	for i, lang := range entity.Languages {
		i, lang := i, lang
		cols = append(cols, recordColumn{
			name: base + "_" + string(lang),
			value: func(r *entity.Record) interface{} {
				t := text(r)
				var v string
				switch lang {
				case entity.LangES:
					v = t.ES
				case entity.LangZH:
					v = t.ZH
				default:
					v = t.EN
				}
				return nullText(v)
			},
			dest: func(row *recordRow) interface{} { return &slots(row)[i] },
		})
	}
	return cols
}

// mutableColumns are written by Create and Update, in this order
var mutableColumns = concatColumns(
	[]recordColumn{
		{"is_closed", func(r *entity.Record) interface{} { return r.IsClosed }, func(row *recordRow) interface{} { return &row.isClosed }},
		{"report_number", func(r *entity.Record) interface{} { return nullString(r.ReportNumber) }, func(row *recordRow) interface{} { return &row.reportNumber }},
		{"part_number_id", func(r *entity.Record) interface{} { return nullInt64(r.PartNumberID) }, func(row *recordRow) interface{} { return &row.partNumberID }},
		{"work_center_id", func(r *entity.Record) interface{} { return nullInt64(r.WorkCenterID) }, func(row *recordRow) interface{} { return &row.workCenterID }},
		{"customer_id", func(r *entity.Record) interface{} { return nullInt64(r.CustomerID) }, func(row *recordRow) interface{} { return &row.customerID }},
		{"level_id", func(r *entity.Record) interface{} { return nullInt64(r.LevelID) }, func(row *recordRow) interface{} { return &row.levelID }},
		{"area_id", func(r *entity.Record) interface{} { return nullInt64(r.AreaID) }, func(row *recordRow) interface{} { return &row.areaID }},
		{"prepared_by_id", func(r *entity.Record) interface{} { return nullInt64(r.PreparedByID) }, func(row *recordRow) interface{} { return &row.preparedByID }},
		{"operation", func(r *entity.Record) interface{} { return nullString(r.Operation) }, func(row *recordRow) interface{} { return &row.operation }},
		{"quantity", func(r *entity.Record) interface{} { return nullInt(r.Quantity) }, func(row *recordRow) interface{} { return &row.quantity }},
		{"serial_number", func(r *entity.Record) interface{} { return nullString(r.SerialNumber) }, func(row *recordRow) interface{} { return &row.serialNumber }},
		{"date", func(r *entity.Record) interface{} { return nullTime(r.Date) }, func(row *recordRow) interface{} { return &row.date }},
		{"inspection_item_id", func(r *entity.Record) interface{} { return nullInt64(r.InspectionItemID) }, func(row *recordRow) interface{} { return &row.inspectionItemID }},
		{"process_code_id", func(r *entity.Record) interface{} { return nullInt64(r.ProcessCodeID) }, func(row *recordRow) interface{} { return &row.processCodeID }},
	},
	textColumns("defect_description",
		func(r *entity.Record) *entity.LocalizedText { return &r.DefectDescription },
		func(row *recordRow) *[3]sql.NullString { return &row.defectDescription }),
	textColumns("process_description",
		func(r *entity.Record) *entity.LocalizedText { return &r.ProcessDescription },
		func(row *recordRow) *[3]sql.NullString { return &row.processDescription }),
	textColumns("analysis",
		func(r *entity.Record) *entity.LocalizedText { return &r.Analysis },
		func(row *recordRow) *[3]sql.NullString { return &row.analysis }),
	[]recordColumn{
		{"analysis_by_id", func(r *entity.Record) interface{} { return nullInt64(r.AnalysisByID) }, func(row *recordRow) interface{} { return &row.analysisByID }},
		{"final_disposition_id", func(r *entity.Record) interface{} { return nullInt64(r.FinalDispositionID) }, func(row *recordRow) interface{} { return &row.finalDispositionID }},
		{"disposition_date", func(r *entity.Record) interface{} { return nullTime(r.DispositionDate) }, func(row *recordRow) interface{} { return &row.dispositionDate }},
		{"engineer_id", func(r *entity.Record) interface{} { return nullInt64(r.EngineerID) }, func(row *recordRow) interface{} { return &row.engineerID }},
		{"failure_code_id", func(r *entity.Record) interface{} { return nullInt64(r.FailureCodeID) }, func(row *recordRow) interface{} { return &row.failureCodeID }},
		{"rework_hours", func(r *entity.Record) interface{} { return nullFloat(r.ReworkHours) }, func(row *recordRow) interface{} { return &row.reworkHours }},
		{"responsible_department", func(r *entity.Record) interface{} { return nullString(r.ResponsibleDepartment) }, func(row *recordRow) interface{} { return &row.responsibleDepartment }},
		{"material_scrap_cost", func(r *entity.Record) interface{} { return nullFloat(r.MaterialScrapCost) }, func(row *recordRow) interface{} { return &row.materialScrapCost }},
		{"other_cost", func(r *entity.Record) interface{} { return nullFloat(r.OtherCost) }, func(row *recordRow) interface{} { return &row.otherCost }},
	},
	textColumns("engineering_remarks",
		func(r *entity.Record) *entity.LocalizedText { return &r.EngineeringRemarks },
		func(row *recordRow) *[3]sql.NullString { return &row.engineeringRemarks }),
	textColumns("repair_process",
		func(r *entity.Record) *entity.LocalizedText { return &r.RepairProcess },
		func(row *recordRow) *[3]sql.NullString { return &row.repairProcess }),
	[]recordColumn{
		{"disposition_approval_date", func(r *entity.Record) interface{} { return nullTime(r.DispositionApprovalDate) }, func(row *recordRow) interface{} { return &row.dispositionApprovalDate }},
		{"disposition_approved_by_id", func(r *entity.Record) interface{} { return nullInt64(r.DispositionApprovedByID) }, func(row *recordRow) interface{} { return &row.dispositionApprovedByID }},
		{"sdr_number", func(r *entity.Record) interface{} { return nullString(r.SDRNumber) }, func(row *recordRow) interface{} { return &row.sdrNumber }},
	},
)

// identityColumns are set once on insert
var identityColumns = []recordColumn{
	{"id", nil, func(row *recordRow) interface{} { return &row.id }},
	{"created_at", nil, func(row *recordRow) interface{} { return &row.createdAt }},
	{"created_by_id", nil, func(row *recordRow) interface{} { return &row.createdByID }},
}

var selectColumns = concatColumns(identityColumns, mutableColumns)

func concatColumns(groups ...[]recordColumn) []recordColumn {
	var out []recordColumn
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func columnNames(cols []recordColumn) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

func columnValues(cols []recordColumn, r *entity.Record) []interface{} {
	values := make([]interface{}, len(cols))
	for i, c := range cols {
		values[i] = c.value(r)
	}
	return values
}

func (row *recordRow) dests() []interface{} {
	dests := make([]interface{}, len(selectColumns))
	for i, c := range selectColumns {
		dests[i] = c.dest(row)
	}
	return dests
}

func localized(slots [3]sql.NullString) entity.LocalizedText {
	return entity.LocalizedText{EN: slots[0].String, ES: slots[1].String, ZH: slots[2].String}
}

func (row *recordRow) record() *entity.Record {
	return &entity.Record{
		ID:           row.id,
		IsClosed:     row.isClosed,
		CreatedAt:    row.createdAt.UTC(),
		CreatedByID:  row.createdByID,
		ReportNumber: stringPtr(row.reportNumber),

		PartNumberID:     int64Ptr(row.partNumberID),
		WorkCenterID:     int64Ptr(row.workCenterID),
		CustomerID:       int64Ptr(row.customerID),
		LevelID:          int64Ptr(row.levelID),
		AreaID:           int64Ptr(row.areaID),
		PreparedByID:     int64Ptr(row.preparedByID),
		Operation:        stringPtr(row.operation),
		Quantity:         intPtr(row.quantity),
		SerialNumber:     stringPtr(row.serialNumber),
		Date:             timePtr(row.date),
		InspectionItemID: int64Ptr(row.inspectionItemID),
		ProcessCodeID:    int64Ptr(row.processCodeID),

		DefectDescription: localized(row.defectDescription),

		ProcessDescription: localized(row.processDescription),
		Analysis:           localized(row.analysis),
		AnalysisByID:       int64Ptr(row.analysisByID),

		FinalDispositionID:    int64Ptr(row.finalDispositionID),
		DispositionDate:       timePtr(row.dispositionDate),
		EngineerID:            int64Ptr(row.engineerID),
		FailureCodeID:         int64Ptr(row.failureCodeID),
		ReworkHours:           floatPtr(row.reworkHours),
		ResponsibleDepartment: stringPtr(row.responsibleDepartment),
		MaterialScrapCost:     floatPtr(row.materialScrapCost),
		OtherCost:             floatPtr(row.otherCost),
		EngineeringRemarks:    localized(row.engineeringRemarks),
		RepairProcess:         localized(row.repairProcess),

		DispositionApprovalDate: timePtr(row.dispositionApprovalDate),
		DispositionApprovedByID: int64Ptr(row.dispositionApprovedByID),
		SDRNumber:               stringPtr(row.sdrNumber),
	}
}
