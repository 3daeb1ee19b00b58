package model

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"resume-pdf-export/internal/domain"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed generate_request.schema.json
var generateRequestSchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// ErrInvalidRequest marks a /generate body rejected by the schema.
var ErrInvalidRequest = errors.New("invalid request")

// ValidationError lists every schema violation of one request body.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(generateRequestSchema))
	})
	return schema, schemaErr
}

// ValidateMap validates a decoded /generate body against the embedded schema.
func ValidateMap(m map[string]interface{}) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load request schema: %w", err)
	}
	if m == nil {
		m = map[string]interface{}{}
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(m))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	verr := &ValidationError{}
	for _, e := range res.Errors() {
		verr.Problems = append(verr.Problems, describe(e))
	}
	return verr
}

func describe(e gojsonschema.ResultError) string {
	switch e.Type() {
	case "required":
		if p, ok := e.Details()["property"].(string); ok {
			return p + " is required"
		}
	case "string_gte", "pattern":
		return e.Field() + " must not be empty"
	}
	return e.String()
}

// DecodeRequest validates m and extracts the RenderRequest it describes.
func DecodeRequest(m map[string]interface{}) (domain.RenderRequest, error) {
	if err := ValidateMap(m); err != nil {
		return domain.RenderRequest{}, err
	}
	taskID, _ := m["task_id"].(string)
	renderURL, _ := m["render_url"].(string)
	return domain.RenderRequest{TaskID: taskID, RenderURL: renderURL}, nil
}
