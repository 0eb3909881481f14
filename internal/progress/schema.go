package progress

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var documentSchema = mustSchema(schemaJSON)

// ErrInvalidDocument wraps every schema violation reported by ValidateDocument.
var ErrInvalidDocument = errors.New("invalid progress document")

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("progress schema: %v", err))
	}
	return s
}

// ValidateDocument checks a raw progress payload before it is saved. All
// fields are optional since saves merge.
func ValidateDocument(raw []byte) error {
	result, err := documentSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}
