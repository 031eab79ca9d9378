package entity

import (
	"fmt"
	"strings"
)

// Role is the caller's permission class
type Role string

const (
	RoleAdmin           Role = "Admin"
	RoleTechEngineer    Role = "Tech Engineer"
	RoleInspector       Role = "Inspector"
	RoleOperator        Role = "Operator"
	RoleQualityEngineer Role = "Quality Engineer"
)

// Roles lists every role in a stable order
var Roles = []Role{
	RoleAdmin,
	RoleTechEngineer,
	RoleInspector,
	RoleOperator,
	RoleQualityEngineer,
}

// ParseRole converts a role name into a Role. Unknown names are rejected.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// IsValid returns true if the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTechEngineer, RoleInspector, RoleOperator, RoleQualityEngineer:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Language is a supported text language tag
type Language string

const (
	LangEN Language = "en"
	LangES Language = "es"
	LangZH Language = "zh"
)

// DefaultLanguage is assumed when a caller does not name one
const DefaultLanguage = LangEN

// Languages lists the stored language variants in column order
var Languages = []Language{LangEN, LangES, LangZH}

// ParseLanguage converts a language tag. Empty input yields DefaultLanguage.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLanguage, nil
	}
	l := Language(s)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: unsupported language %q (use en, es or zh)", ErrInvalidInput, s)
	}
	return l, nil
}

// IsValid returns true if the language is supported
func (l Language) IsValid() bool {
	switch l {
	case LangEN, LangES, LangZH:
		return true
	default:
		return false
	}
}

// String returns the string representation of the language
func (l Language) String() string {
	return string(l)
}

// Catalog names a lookup table referenced by a record
type Catalog string

const (
	CatalogPartNumber     Catalog = "partnumber"
	CatalogWorkCenter     Catalog = "workcenter"
	CatalogCustomer       Catalog = "customer"
	CatalogLevel          Catalog = "level"
	CatalogArea           Catalog = "area"
	CatalogCalibration    Catalog = "calibration"
	CatalogInspectionItem Catalog = "inspectionitem"
	CatalogPreparedBy     Catalog = "preparedby"
	CatalogProcessCode    Catalog = "processcode"
	CatalogDisposition    Catalog = "disposition"
	CatalogFailureCode    Catalog = "failurecode"
)

// Catalogs lists every lookup table
var Catalogs = []Catalog{
	CatalogPartNumber,
	CatalogWorkCenter,
	CatalogCustomer,
	CatalogLevel,
	CatalogArea,
	CatalogCalibration,
	CatalogInspectionItem,
	CatalogPreparedBy,
	CatalogProcessCode,
	CatalogDisposition,
	CatalogFailureCode,
}

// IsValid returns true if the catalog is one of the defined tables
func (c Catalog) IsValid() bool {
	for _, known := range Catalogs {
		if c == known {
			return true
		}
	}
	return false
}
