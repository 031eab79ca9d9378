// Package policy maps roles to the record fields they may write.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// ErrForbidden is wrapped by ForbiddenError
var ErrForbidden = errors.New("field not editable by role")

var (
	generalInformation = []entity.Field{
		entity.FieldPartNumberID,
		entity.FieldWorkCenterID,
		entity.FieldCustomerID,
		entity.FieldLevelID,
		entity.FieldAreaID,
		entity.FieldPreparedByID,
		entity.FieldOperation,
		entity.FieldQuantity,
		entity.FieldSerialNumber,
		entity.FieldDate,
		entity.FieldInspectionItemID,
		entity.FieldProcessCodeID,
		entity.FieldReportNumber,
	}

	defectDescription = []entity.Field{
		entity.FieldDefectDescription,
	}

	processAnalysis = []entity.Field{
		entity.FieldProcessDescription,
		entity.FieldAnalysis,
		entity.FieldAnalysisByID,
	}

	engineeringDisposition = []entity.Field{
		entity.FieldFinalDispositionID,
		entity.FieldDispositionDate,
		entity.FieldEngineerID,
		entity.FieldFailureCodeID,
		entity.FieldReworkHours,
		entity.FieldResponsibleDepartment,
		entity.FieldMaterialScrapCost,
		entity.FieldOtherCost,
		entity.FieldEngineeringRemarks,
		entity.FieldRepairProcess,
	}

	qualityClosure = []entity.Field{
		entity.FieldDispositionApprovalDate,
		entity.FieldDispositionApprovedByID,
		entity.FieldSDRNumber,
		entity.FieldIsClosed,
	}
)

var (
	adminFields = newFieldSet(
		generalInformation, defectDescription, processAnalysis,
		engineeringDisposition, qualityClosure,
	)
	techEngineerFields    = newFieldSet(processAnalysis, engineeringDisposition)
	inspectorFields       = newFieldSet(generalInformation, defectDescription)
	operatorFields        = newFieldSet(processAnalysis)
	qualityEngineerFields = newFieldSet(qualityClosure)
	noFields              = newFieldSet()
)

// AllowedFields returns the fields role may write. Unrecognized roles get the empty set.
func AllowedFields(role entity.Role) FieldSet {
	switch role {
	case entity.RoleAdmin:
		return adminFields
	case entity.RoleTechEngineer:
		return techEngineerFields
	case entity.RoleInspector:
		return inspectorFields
	case entity.RoleOperator:
		return operatorFields
	case entity.RoleQualityEngineer:
		return qualityEngineerFields
	default:
		return noFields
	}
}

// CreateFields is the allow-list for record creation
func CreateFields() FieldSet {
	return inspectorFields
}

// CreateRole is the only role that may open records
const CreateRole = entity.RoleInspector

// RequiredOnCreate lists the fields a new record must carry
var RequiredOnCreate = []entity.Field{
	entity.FieldPartNumberID,
	entity.FieldWorkCenterID,
	entity.FieldCustomerID,
	entity.FieldPreparedByID,
	entity.FieldOperation,
	entity.FieldQuantity,
	entity.FieldDate,
	entity.FieldInspectionItemID,
	entity.FieldProcessCodeID,
	entity.FieldDefectDescription,
}

// Check rejects fields outside role's allow-list. Every offending field is reported.
func Check(role entity.Role, fields []entity.Field) error {
	return CheckAgainst(AllowedFields(role), role, fields)
}

// CheckAgainst is Check with an explicit allow-list
func CheckAgainst(allowed FieldSet, role entity.Role, fields []entity.Field) error {
	var denied []entity.Field
	for _, f := range fields {
		if !allowed.Contains(f) {
			denied = append(denied, f)
		}
	}
	if len(denied) == 0 {
		return nil
	}
	return &ForbiddenError{
		Role:    role,
		Fields:  denied,
		Allowed: allowed.Fields(),
	}
}

// ForbiddenError reports change-set fields outside a role's allow-list
type ForbiddenError struct {
	Role    entity.Role
	Fields  []entity.Field
	Allowed []entity.Field
}

func (e *ForbiddenError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = "'" + string(f) + "'"
	}
	return fmt.Sprintf("field %s cannot be edited by role '%s'", strings.Join(names, ", "), e.Role)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}
