package labresults

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed extract_request.schema.json
var extractRequestSchemaJSON string

var extractRequestSchema = jsonschema.MustCompileString("extract_request.schema.json", extractRequestSchemaJSON)

// DecodeExtractRequest validates body against the request schema before
// decoding it, so the extractor only ever sees a present text and a list of
// string labels.
func DecodeExtractRequest(body []byte) (*ExtractRequest, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := extractRequestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid extract request: %w", err)
	}

	var req ExtractRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode extract request: %w", err)
	}
	return &req, nil
}
