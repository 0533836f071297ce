package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StudyRecord returns a study record shaped like the clinicaltrials.gov v2
// /studies/{id} response. referencesModule is deliberately absent.
func StudyRecord(nctID, title string) string {
	return fmt.Sprintf(`{
  "protocolSection": {
    "identificationModule": {"nctId": %[1]s, "briefTitle": %[2]s},
    "statusModule": {"overallStatus": "RECRUITING", "startDateStruct": {"date": "2023-01-15"}},
    "sponsorsCollaboratorsModule": {"leadSponsor": {"name": "National Cancer Institute", "class": "NIH"}},
    "descriptionModule": {"briefSummary": "A study of pembrolizumab in advanced melanoma."},
    "conditionsModule": {"conditions": ["Melanoma", "Skin Cancer"]},
    "designModule": {"studyType": "INTERVENTIONAL", "phases": ["PHASE2"]},
    "armsInterventionsModule": {"armGroups": [{"label": "Arm A", "type": "EXPERIMENTAL"}]},
    "outcomesModule": {
      "primaryOutcomes": [{"measure": "Overall response rate"}],
      "secondaryOutcomes": [{"measure": "Progression-free survival"}]
    },
    "eligibilityModule": {"sex": "ALL", "minimumAge": "18 Years"}
  },
  "derivedSection": {
    "interventionBrowseModule": {"browseLeaves": [{"id": "M1", "name": "Pembrolizumab"}]}
  }
}`, quote(nctID), quote(title))
}

// EmptyStudyRecord has none of the extracted sections
func EmptyStudyRecord() string {
	return `{"protocolSection": {"identificationModule": {"nctId": "NCT00000000"}}}`
}

// SearchStudy is one entry of a fixture search response
type SearchStudy struct {
	NCTID string
	Title string
}

// SearchResponse returns a /studies search response listing studies in order
func SearchResponse(studies ...SearchStudy) string {
	entries := make([]string, len(studies))
	for i, s := range studies {
		entries[i] = fmt.Sprintf(`{"protocolSection":{"identificationModule":{"nctId":%s,"briefTitle":%s}}}`, quote(s.NCTID), quote(s.Title))
	}
	return fmt.Sprintf(`{"studies":[%s],"nextPageToken":"abc"}`, strings.Join(entries, ","))
}

// MustJSON marshals v or panics, for building expectations
func MustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
