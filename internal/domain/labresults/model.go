package labresults

import (
	"github.com/opencare/opencare/internal/labextract"
)

// ExtractRequest is the inbound payload: OCR text of a lab report and the
// test names expected in it.
type ExtractRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// ExtractResponse lists the values found, in the order of the request labels.
type ExtractResponse struct {
	ExtractedValues []labextract.ExtractedValue `json:"extractedValues"`
	Count           int                         `json:"count"`
}

func newExtractResponse(values []labextract.ExtractedValue) *ExtractResponse {
	if values == nil {
		values = []labextract.ExtractedValue{}
	}
	return &ExtractResponse{ExtractedValues: values, Count: len(values)}
}
