// Package records holds the client-side row representation shared by the
// draft state, the query cache and the mutation dispatcher.
package records

import (
	"fmt"
	"strings"
)

// Kind tags every row with the collection it belongs to
type Kind string

const (
	KindProperty Kind = "property"
	KindSuite    Kind = "suite"
	KindService  Kind = "service"
	KindUtility  Kind = "utility"
	KindCode     Kind = "code"
	KindContact  Kind = "contact"
)

type kindInfo struct {
	idField      string
	section      string
	label        string
	sortKey      string
	searchFields []string
	columns      []string
	relations    []string
}

var kinds = map[Kind]kindInfo{
	KindProperty: {
		idField:      "yardi",
		section:      "properties",
		label:        "Property",
		sortKey:      "address",
		searchFields: []string{"address", "city", "yardi", "prop_manager"},
		columns: []string{
			"yardi", "address", "city", "state", "zip", "building_type", "total_sq_ft",
			"prop_manager", "coe", "year_built", "year_rent", "num_buildings", "num_stories",
			"apn", "prop_tax_id", "parking", "fire_sprinklers", "net_rentable_area", "land_area",
			"structural_frame", "foundation", "roof_type", "roof_cover", "heat_cooling_source",
			"misc", "active",
		},
		relations: []string{"suites", "services", "utilities", "codes"},
	},
	KindSuite: {
		idField:      "suite_id",
		section:      "suites",
		label:        "Suites",
		sortKey:      "suite",
		searchFields: []string{"suite", "name", "sqft", "hvac", "hvac_info", "notes"},
		columns: []string{
			"suite", "sqft", "name", "notes", "hvac", "hvac_info", "commercial_cafe",
			"door_access_codes", "lease_obligations", "signage_rights", "parking_spaces",
			"electrical_amperage", "misc",
		},
		relations: []string{"contacts"},
	},
	KindService: {
		idField:      "service_id",
		section:      "services",
		label:        "Services",
		sortKey:      "service_type",
		searchFields: []string{"service_type", "vendor", "paid_by", "notes"},
		columns:      []string{"service_type", "vendor", "notes", "paid_by", "tenant_specifics", "suite_specifics"},
		relations:    []string{"contacts"},
	},
	KindUtility: {
		idField:      "utility_id",
		section:      "utilities",
		label:        "Utilities",
		sortKey:      "service",
		searchFields: []string{"service", "vendor", "account_number", "meter_number", "paid_by", "notes"},
		columns:      []string{"service", "vendor", "account_number", "meter_number", "notes", "paid_by"},
		relations:    []string{"contacts"},
	},
	KindCode: {
		idField:      "code_id",
		section:      "codes",
		label:        "Codes",
		sortKey:      "description",
		searchFields: []string{"description", "code", "notes"},
		columns:      []string{"description", "code", "notes"},
	},
	KindContact: {
		idField:      "contact_id",
		section:      "contacts",
		label:        "Contacts",
		sortKey:      "name",
		searchFields: []string{"name", "title", "phone", "email", "notes"},
		columns:      []string{"name", "title", "phone", "email", "notes", "suite_id", "service_id", "utility_id"},
	},
}

// SectionKinds are the editable collections under a property, in display
// order.
var SectionKinds = []Kind{KindSuite, KindService, KindUtility, KindCode, KindContact}

// ParseKind accepts a kind ("suite") or its section name ("suites").
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, info := range kinds {
		if string(k) == name || info.section == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", name)
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// IDField is the one field that identifies a row of this kind
func (k Kind) IDField() string { return kinds[k].idField }

// Section is the plural collection name, which is also the REST path
func (k Kind) Section() string { return kinds[k].section }

// Label is the display title of the collection
func (k Kind) Label() string { return kinds[k].label }

// SortKey is the field rows are alphabetized by
func (k Kind) SortKey() string { return kinds[k].sortKey }

// SearchFields are the fields a search string is matched against
func (k Kind) SearchFields() []string { return kinds[k].searchFields }

// Columns are the editable fields in display order
func (k Kind) Columns() []string { return kinds[k].columns }

// Relations are nested collections carried on rows of this kind
func (k Kind) Relations() []string { return kinds[k].relations }
