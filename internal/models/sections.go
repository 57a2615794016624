package models

import (
	"strconv"
	"time"
)

// Section is the set of record types a property owns directly. Each is
// addressed by its own integer key and carries the owning property's Yardi.
type Section interface {
	Suite | Service | Utility | Code

	TableName() string
	EntityType() string
	IDColumn() string
	GetID() uint64
	GetPropertyYardi() string
	DisplayLabel() string
}

// Suite is a leasable unit within a property
type Suite struct {
	SuiteID            uint64    `gorm:"primaryKey;autoIncrement" json:"suite_id"`
	PropertyYardi      string    `gorm:"size:64;not null;index" json:"property_yardi" validate:"required"`
	Suite              string    `gorm:"size:64" json:"suite"`
	Sqft               string    `gorm:"size:32" json:"sqft"`
	Name               string    `gorm:"size:255;index" json:"name"`
	Notes              string    `gorm:"type:text" json:"notes"`
	HVAC               string    `gorm:"column:hvac;type:text" json:"hvac"`
	HVACInfo           string    `gorm:"column:hvac_info;type:text" json:"hvac_info"`
	CommercialCafe     string    `gorm:"size:255" json:"commercial_cafe"`
	DoorAccessCodes    string    `gorm:"type:text" json:"door_access_codes"`
	LeaseObligations   string    `gorm:"type:text" json:"lease_obligations"`
	SignageRights      string    `gorm:"type:text" json:"signage_rights"`
	ParkingSpaces      string    `gorm:"type:text" json:"parking_spaces"`
	ElectricalAmperage string    `gorm:"type:text" json:"electrical_amperage"`
	Misc               string    `gorm:"type:text" json:"misc"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Contacts           []Contact `gorm:"foreignKey:SuiteID" json:"contacts"`
}

// Service is a vendor service contracted for a property
type Service struct {
	ServiceID       uint64    `gorm:"primaryKey;autoIncrement" json:"service_id"`
	PropertyYardi   string    `gorm:"size:64;not null;index" json:"property_yardi" validate:"required"`
	ServiceType     string    `gorm:"size:255" json:"service_type"`
	Vendor          string    `gorm:"size:255;index" json:"vendor"`
	Notes           string    `gorm:"type:text" json:"notes"`
	PaidBy          string    `gorm:"size:128" json:"paid_by"`
	TenantSpecifics string    `gorm:"type:text" json:"tenant_specifics"`
	SuiteSpecifics  string    `gorm:"type:text" json:"suite_specifics"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Contacts        []Contact `gorm:"foreignKey:ServiceID" json:"contacts"`
}

// Utility is a metered utility account for a property
type Utility struct {
	UtilityID     uint64    `gorm:"primaryKey;autoIncrement" json:"utility_id"`
	PropertyYardi string    `gorm:"size:64;not null;index" json:"property_yardi" validate:"required"`
	Service       string    `gorm:"size:255" json:"service"`
	Vendor        string    `gorm:"size:255;index" json:"vendor"`
	AccountNumber string    `gorm:"size:128" json:"account_number"`
	MeterNumber   string    `gorm:"size:128" json:"meter_number"`
	Notes         string    `gorm:"type:text" json:"notes"`
	PaidBy        string    `gorm:"size:128" json:"paid_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Contacts      []Contact `gorm:"foreignKey:UtilityID" json:"contacts"`
}

// Code is an access or alarm code recorded for a property
type Code struct {
	CodeID        uint64    `gorm:"primaryKey;autoIncrement" json:"code_id"`
	PropertyYardi string    `gorm:"size:64;not null;index" json:"property_yardi" validate:"required"`
	Description   string    `gorm:"size:255;index" json:"description"`
	Code          string    `gorm:"size:255" json:"code"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Suite) TableName() string   { return "suites" }
func (Service) TableName() string { return "services" }
func (Utility) TableName() string { return "utilities" }
func (Code) TableName() string    { return "codes" }

func (Suite) EntityType() string   { return "suite" }
func (Service) EntityType() string { return "service" }
func (Utility) EntityType() string { return "utility" }
func (Code) EntityType() string    { return "code" }

func (Suite) IDColumn() string   { return "suite_id" }
func (Service) IDColumn() string { return "service_id" }
func (Utility) IDColumn() string { return "utility_id" }
func (Code) IDColumn() string    { return "code_id" }

func (s Suite) GetID() uint64   { return s.SuiteID }
func (s Service) GetID() uint64 { return s.ServiceID }
func (u Utility) GetID() uint64 { return u.UtilityID }
func (c Code) GetID() uint64    { return c.CodeID }

func (s Suite) GetPropertyYardi() string   { return s.PropertyYardi }
func (s Service) GetPropertyYardi() string { return s.PropertyYardi }
func (u Utility) GetPropertyYardi() string { return u.PropertyYardi }
func (c Code) GetPropertyYardi() string    { return c.PropertyYardi }

// DisplayLabel falls back to the id when the descriptive field is empty.
func (s Suite) DisplayLabel() string {
	return firstNonEmpty(s.Suite, strconv.FormatUint(s.SuiteID, 10))
}

func (s Service) DisplayLabel() string {
	return firstNonEmpty(s.ServiceType, s.Vendor, strconv.FormatUint(s.ServiceID, 10))
}

func (u Utility) DisplayLabel() string {
	return firstNonEmpty(u.Service, u.AccountNumber, strconv.FormatUint(u.UtilityID, 10))
}

func (c Code) DisplayLabel() string {
	return firstNonEmpty(c.Description, c.Code, strconv.FormatUint(c.CodeID, 10))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
