package labresults

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/opencare/opencare/internal/labextract"
)

// ResultCache stores extraction results keyed by their input. Get reports
// a miss with found == false and a nil error.
type ResultCache interface {
	Get(ctx context.Context, key string) (values []labextract.ExtractedValue, found bool, err error)
	Set(ctx context.Context, key string, values []labextract.ExtractedValue) error
}

// cacheKey hashes text and labels. Each part is length-prefixed so that
// moving characters between the text and a label changes the key.
func cacheKey(req *ExtractRequest) string {
	h := sha256.New()
	writePart := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	writePart(req.Text)
	for _, label := range req.Labels {
		writePart(label)
	}
	return "labresults:extract:" + hex.EncodeToString(h.Sum(nil))
}
