package feed

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/feedpulse/errors"
)

// Payload-shape schemas for the two public broadcast feeds. Structural
// validation only; payload content is never interpreted here.
const (
	imageSchemaJSON = `{
		"type": "object",
		"required": ["prompt", "imageURL", "model", "width", "height"],
		"properties": {
			"prompt":   {"type": "string"},
			"imageURL": {"type": "string", "minLength": 1},
			"model":    {"type": "string"},
			"width":    {"type": "integer", "minimum": 1},
			"height":   {"type": "integer", "minimum": 1},
			"seed":     {"type": "integer"}
		}
	}`

	textSchemaJSON = `{
		"type": "object",
		"required": ["response", "model"],
		"properties": {
			"response": {"type": "string", "minLength": 1},
			"model":    {"type": "string"},
			"messages": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["role", "content"],
					"properties": {
						"role":    {"type": "string"},
						"content": {"type": "string"}
					}
				}
			}
		}
	}`
)

var (
	imageSchema = mustSchema(imageSchemaJSON)
	textSchema  = mustSchema(textSchemaJSON)
)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("feed: invalid embedded schema: %v", err))
	}
	return schema
}

// DecodeImage parses and validates a raw image-feed payload.
// Parse failures wrap ErrParsingFailed; shape failures wrap ErrInvalidData.
func DecodeImage(raw []byte) (ImageEvent, error) {
	var ev ImageEvent
	if err := decode(raw, imageSchema, &ev); err != nil {
		return ImageEvent{}, err
	}
	return ev, nil
}

// DecodeText parses and validates a raw text-feed payload.
// Parse failures wrap ErrParsingFailed; shape failures wrap ErrInvalidData.
func DecodeText(raw []byte) (TextEvent, error) {
	var ev TextEvent
	if err := decode(raw, textSchema, &ev); err != nil {
		return TextEvent{}, err
	}
	return ev, nil
}

// decode runs the shared parse, schema-check, unmarshal sequence.
func decode(raw []byte, schema *gojsonschema.Schema, out any) error {
	if !json.Valid(raw) {
		return errors.WrapInvalid(errors.ErrParsingFailed, "feed", "decode", "parsing payload")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.WrapInvalid(errors.ErrParsingFailed, "feed", "decode", "loading payload")
	}
	if !result.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidData, "feed", "decode", "validating payload shape")
	}

	if err := json.Unmarshal(raw, out); err != nil {
		// Schema passed but the struct mapping did not, e.g. a
		// fractional number in an integer field.
		return errors.WrapInvalid(errors.ErrInvalidData, "feed", "decode", "unmarshaling payload")
	}
	return nil
}

// dropReason converts a decode error into the Prometheus drop-reason label.
func dropReason(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrParsingFailed):
		return "parse"
	case stderrors.Is(err, errors.ErrInvalidData):
		return "schema"
	default:
		return "invalid"
	}
}
