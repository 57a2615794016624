package models

import (
	"time"
)

// Property is a commercial real-estate property keyed by its externally
// assigned Yardi code.
type Property struct {
	Yardi             string     `gorm:"primaryKey;size:64" json:"yardi" validate:"required,max=64"`
	Address           string     `gorm:"size:255;index" json:"address"`
	PropPhoto         string     `gorm:"size:1024" json:"prop_photo"`
	City              string     `gorm:"size:128;index" json:"city"`
	State             string     `gorm:"size:64" json:"state"`
	Zip               string     `gorm:"size:16;index" json:"zip"`
	BuildingType      string     `gorm:"size:128;index" json:"building_type"`
	TotalSqFt         int64      `json:"total_sq_ft"`
	PropManager       string     `gorm:"size:255;index" json:"prop_manager"`
	Coe               string     `gorm:"size:32" json:"coe"`
	YearBuilt         string     `gorm:"size:32" json:"year_built"`
	YearRent          string     `gorm:"size:32" json:"year_rent"`
	NumBuildings      string     `gorm:"size:32" json:"num_buildings"`
	NumStories        string     `gorm:"size:32" json:"num_stories"`
	APN               string     `gorm:"column:apn;size:64" json:"apn"`
	PropTaxID         string     `gorm:"column:prop_tax_id;size:64" json:"prop_tax_id"`
	Parking           string     `gorm:"size:255" json:"parking"`
	FireSprinklers    string     `gorm:"size:255" json:"fire_sprinklers"`
	NetRentableArea   string     `gorm:"size:64" json:"net_rentable_area"`
	LandArea          string     `gorm:"size:64" json:"land_area"`
	StructuralFrame   string     `gorm:"size:255" json:"structural_frame"`
	Foundation        string     `gorm:"size:255" json:"foundation"`
	RoofType          string     `gorm:"size:255" json:"roof_type"`
	RoofCover         string     `gorm:"size:255" json:"roof_cover"`
	HeatCoolingSource string     `gorm:"size:255" json:"heat_cooling_source"`
	Misc              string     `gorm:"type:text" json:"misc"`
	Active            bool       `gorm:"not null" json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Suites    []Suite   `gorm:"foreignKey:PropertyYardi;references:Yardi" json:"suites"`
	Services  []Service `gorm:"foreignKey:PropertyYardi;references:Yardi" json:"services"`
	Utilities []Utility `gorm:"foreignKey:PropertyYardi;references:Yardi" json:"utilities"`
	Codes     []Code    `gorm:"foreignKey:PropertyYardi;references:Yardi" json:"codes"`
}

// TableName overrides the table name for Property
func (Property) TableName() string {
	return "properties"
}

// DisplayLabel is the human-friendly label used in edit history
func (p Property) DisplayLabel() string {
	if p.Address != "" {
		return p.Address
	}
	return p.Yardi
}
