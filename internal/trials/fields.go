package trials

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Field maps a recognized field name to its location in a study record
type Field struct {
	Name     string
	Path     string // gjson path into the /studies/{id} document
	Fallback string // returned when Path is absent
}

var fieldTable = []Field{
	{"interventionAlone", "derivedSection.interventionBrowseModule.browseLeaves", "No interventions found"},
	{"studyArmsInterventions", "protocolSection.armsInterventionsModule.armGroups", "No arms or interventions found"},
	{"patientConditions", "protocolSection.conditionsModule.conditions", "No conditions found"},
	{"studySummary", "protocolSection.descriptionModule.briefSummary", "No brief summary found"},
	{"studyDesign", "protocolSection.designModule", "No study design found"},
	{"patientEligibility", "protocolSection.eligibilityModule", "No eligibility criteria found"},
	{"organizations", "protocolSection.sponsorsCollaboratorsModule", "No organizations found"},
	{"primaryOutcomes", "protocolSection.outcomesModule.primaryOutcomes", "No primary outcomes found"},
	{"secondaryOutcomes", "protocolSection.outcomesModule.secondaryOutcomes", "No secondary outcomes found"},
	{"references", "protocolSection.referencesModule.references", "No references found"},
	{"statusDates", "protocolSection.statusModule", "No status dates found"},
}

var fieldIndex = func() map[string]Field {
	idx := make(map[string]Field, len(fieldTable))
	for _, f := range fieldTable {
		idx[f.Name] = f
	}
	return idx
}()

// FieldNames returns the recognized field names in table order
func FieldNames() []string {
	names := make([]string, len(fieldTable))
	for i, f := range fieldTable {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the field table
func Fields() []Field {
	out := make([]Field, len(fieldTable))
	copy(out, fieldTable)
	return out
}

// LookupField returns the table entry for name
func LookupField(name string) (Field, bool) {
	f, ok := fieldIndex[name]
	return f, ok
}

// InvalidFieldMessage is the text reported for an unrecognized field
func InvalidFieldMessage(name string) string {
	return fmt.Sprintf("Field %s is not a valid field. Valid fields are: %s.", name, strings.Join(FieldNames(), ", "))
}

// Extract projects a raw study record down to one field. The result is the
// raw JSON sub-document, or the field's fallback string when the path is
// missing.
func (f Field) Extract(record []byte) (interface{}, error) {
	if !gjson.ValidBytes(record) {
		return nil, fmt.Errorf("invalid study record")
	}
	res := gjson.GetBytes(record, f.Path)
	if !res.Exists() {
		return f.Fallback, nil
	}
	return rawJSON(res.Raw), nil
}

// ExtractField looks name up and extracts it from record
func ExtractField(record []byte, name string) (interface{}, error) {
	f, ok := LookupField(name)
	if !ok {
		return nil, fmt.Errorf("%s", InvalidFieldMessage(name))
	}
	return f.Extract(record)
}
