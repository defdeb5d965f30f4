// Package openapi embeds, validates, and serves the service's API document.
package openapi

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var document []byte

// Operation is one indexed API operation.
type Operation struct {
	OperationID  string
	Method       string
	PathTemplate string
}

// Spec is the validated API document with operation lookup by operationId.
type Spec struct {
	doc        *openapi3.T
	operations map[string]Operation
}

// Load parses and validates the embedded document. Called once at startup so
// a malformed document fails the boot, not the first client.
func Load(ctx context.Context) (*Spec, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("openapi: parsing embedded document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validating embedded document: %w", err)
	}

	spec := &Spec{
		doc:        doc,
		operations: make(map[string]Operation),
	}
	for path, pathItem := range doc.Paths.Map() {
		for method, op := range pathItem.Operations() {
			if op.OperationID == "" {
				continue
			}
			if _, exists := spec.operations[op.OperationID]; exists {
				return nil, fmt.Errorf("openapi: duplicate operationId %q", op.OperationID)
			}
			spec.operations[op.OperationID] = Operation{
				OperationID:  op.OperationID,
				Method:       method,
				PathTemplate: path,
			}
		}
	}
	return spec, nil
}

// Operation looks up an operation by its operationId.
func (s *Spec) Operation(operationID string) (Operation, bool) {
	op, ok := s.operations[operationID]
	return op, ok
}

// OperationIDs returns all operationIds in sorted order.
func (s *Spec) OperationIDs() []string {
	ids := make([]string, 0, len(s.operations))
	for id := range s.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Title returns the document's info title.
func (s *Spec) Title() string {
	return s.doc.Info.Title
}

// Handler serves the raw document.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(document)
	})
}
