package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var apiDocument []byte

// APIDocService serves the OpenAPI description of the HTTP surface.
type APIDocService struct {
	doc *openapi3.T
}

// NewAPIDocService parses and validates the embedded document, so a broken
// description fails at startup rather than in a client generator.
func NewAPIDocService(ctx context.Context) (*APIDocService, error) {
	doc, err := ParseOpenAPI(apiDocument)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return &APIDocService{doc: doc}, nil
}

func (s *APIDocService) Document() *openapi3.T {
	return s.doc
}

// Operations lists the documented operations as "METHOD /path", with path
// parameters in the router's ":name" form.
func (s *APIDocService) Operations() []string {
	var ops []string
	for path, item := range s.doc.Paths.Map() {
		for method := range item.Operations() {
			ops = append(ops, method+" "+routerPath(path))
		}
	}
	sort.Strings(ops)
	return ops
}

// ParseOpenAPI parses an OpenAPI document in JSON or YAML.
func ParseOpenAPI(content []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(content)
	if err == nil {
		return doc, nil
	}

	var yamlData any
	if yamlErr := yaml.Unmarshal(content, &yamlData); yamlErr != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	jsonContent, jsonErr := json.Marshal(yamlData)
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to convert YAML to JSON: %w", jsonErr)
	}
	doc, err = loader.LoadFromData(jsonContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return doc, nil
}

func routerPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			parts[i] = ":" + p[1:len(p)-1]
		}
	}
	return strings.Join(parts, "/")
}
