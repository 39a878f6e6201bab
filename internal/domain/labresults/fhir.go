package labresults

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/opencare/opencare/internal/labextract"
)

const observationCategorySystem = "http://terminology.hl7.org/CodeSystem/observation-category"

// ToObservationBundle wraps extracted values as preliminary laboratory
// Observations in a FHIR collection Bundle. Values that do not parse as a
// number (the permissive pass-through cases) are carried as valueString.
func ToObservationBundle(values []labextract.ExtractedValue, now time.Time) map[string]interface{} {
	issued := now.UTC().Format(time.RFC3339)
	entries := make([]map[string]interface{}, 0, len(values))
	for _, v := range values {
		obs := map[string]interface{}{
			"resourceType": "Observation",
			"id":           uuid.New().String(),
			"status":       "preliminary",
			"category": []map[string]interface{}{
				{
					"coding": []map[string]interface{}{
						{"system": observationCategorySystem, "code": "laboratory", "display": "Laboratory"},
					},
				},
			},
			"code":   map[string]interface{}{"text": v.TestName},
			"issued": issued,
		}
		if n, err := strconv.ParseFloat(v.Value, 64); err == nil {
			obs["valueQuantity"] = map[string]interface{}{"value": n}
		} else {
			obs["valueString"] = v.Value
		}
		entries = append(entries, map[string]interface{}{"resource": obs})
	}

	return map[string]interface{}{
		"resourceType": "Bundle",
		"id":           uuid.New().String(),
		"type":         "collection",
		"timestamp":    issued,
		"entry":        entries,
	}
}
