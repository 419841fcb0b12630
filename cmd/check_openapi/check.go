package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type openAPIDoc struct {
	Paths      map[string]map[string]yaml.Node `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

type schemaShape struct {
	Type       string
	Required   []string
	Properties map[string]propertyShape
}

type propertyShape struct {
	Type     string
	Ref      string
	ItemsRef string
}

// contractSchemas are the component schemas clients depend on.
var contractSchemas = []string{"Contact", "ContactList", "ErrorResponse", "ErrorDetail"}

// contractOperations maps each contact path to the methods it must expose.
var contractOperations = map[string][]string{
	"/contacts":      {"get", "post"},
	"/contacts/{id}": {"get", "put", "delete"},
}

// loadDoc reads an OpenAPI document from a file or an http(s) URL.
// JSON documents parse as YAML.
func loadDoc(ctx context.Context, source string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := readSource(ctx, source)
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", source, err)
	}
	return doc, nil
}

func readSource(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		raw, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		return raw, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// checkContract validates the error envelope, the contact schema and the route table.
func checkContract(doc openAPIDoc) error {
	errResp, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		return err
	}
	if err := validateErrorResponse(errResp); err != nil {
		return err
	}
	detail, err := getSchema(doc, "ErrorDetail")
	if err != nil {
		return err
	}
	if err := validateErrorDetail(detail); err != nil {
		return err
	}
	contact, err := getSchema(doc, "Contact")
	if err != nil {
		return err
	}
	if err := validateContact(contact); err != nil {
		return err
	}
	list, err := getSchema(doc, "ContactList")
	if err != nil {
		return err
	}
	if err := validateContactList(list); err != nil {
		return err
	}
	return validateOperations(doc)
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	required := makeSet(s.Required)
	for _, field := range []string{"error", "code"} {
		if !required[field] {
			return fmt.Errorf("ErrorResponse.required must include %q", field)
		}
		if prop, ok := s.Properties[field]; !ok || prop.Type != "string" {
			return fmt.Errorf("ErrorResponse.%s must be string", field)
		}
	}
	if prop, ok := s.Properties["requestId"]; !ok || prop.Type != "string" {
		return errors.New("ErrorResponse.requestId must be string")
	}
	detailsProp, ok := s.Properties["details"]
	if !ok || detailsProp.Type != "array" {
		return errors.New("ErrorResponse.details must be array")
	}
	if detailsProp.Items == nil || strings.TrimSpace(detailsProp.Items.Ref) != "#/components/schemas/ErrorDetail" {
		return errors.New("ErrorResponse.details.items must reference ErrorDetail")
	}
	return nil
}

func validateErrorDetail(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorDetail must be object")
	}
	if !makeSet(s.Required)["reason"] {
		return errors.New("ErrorDetail.required must include \"reason\"")
	}
	if prop, ok := s.Properties["reason"]; !ok || prop.Type != "string" {
		return errors.New("ErrorDetail.reason must be string")
	}
	return nil
}

func validateContact(s schema) error {
	if s.Type != "object" {
		return errors.New("Contact must be object")
	}
	required := makeSet(s.Required)
	if prop, ok := s.Properties["id"]; !ok || prop.Type != "integer" || !required["id"] {
		return errors.New("Contact.id must be a required integer")
	}
	for _, field := range []string{"name", "areaCode", "phoneNumber", "email"} {
		if prop, ok := s.Properties[field]; !ok || prop.Type != "string" || !required[field] {
			return fmt.Errorf("Contact.%s must be a required string", field)
		}
	}
	return nil
}

func validateContactList(s schema) error {
	items, ok := s.Properties["items"]
	if !ok || items.Type != "array" || items.Items == nil || strings.TrimSpace(items.Items.Ref) != "#/components/schemas/Contact" {
		return errors.New("ContactList.items must be an array of Contact")
	}
	if count, ok := s.Properties["count"]; !ok || count.Type != "integer" {
		return errors.New("ContactList.count must be integer")
	}
	return nil
}

func validateOperations(doc openAPIDoc) error {
	paths := make([]string, 0, len(contractOperations))
	for path := range contractOperations {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		ops, ok := doc.Paths[path]
		if !ok {
			return fmt.Errorf("path %q missing", path)
		}
		for _, method := range contractOperations[path] {
			if _, ok := ops[method]; !ok {
				return fmt.Errorf("operation %s %s missing", strings.ToUpper(method), path)
			}
		}
	}
	return nil
}

// compareDocs reports contract schemas whose shape drifted from the baseline.
func compareDocs(baseline, current openAPIDoc) error {
	for _, name := range contractSchemas {
		left, err := getSchema(baseline, name)
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		right, err := getSchema(current, name)
		if err != nil {
			return err
		}
		if err := ensureSameShape(name, shapeFromSchema(left), shapeFromSchema(right)); err != nil {
			return err
		}
	}
	return nil
}

func shapeFromSchema(s schema) schemaShape {
	out := schemaShape{
		Type:       s.Type,
		Required:   append([]string(nil), s.Required...),
		Properties: make(map[string]propertyShape, len(s.Properties)),
	}
	sort.Strings(out.Required)
	for name, prop := range s.Properties {
		shape := propertyShape{Type: prop.Type, Ref: strings.TrimSpace(prop.Ref)}
		if prop.Items != nil {
			shape.ItemsRef = strings.TrimSpace(prop.Items.Ref)
		}
		out.Properties[name] = shape
	}
	return out
}

func ensureSameShape(name string, baseline, current schemaShape) error {
	if baseline.Type != current.Type {
		return fmt.Errorf("%s type changed: %q -> %q", name, baseline.Type, current.Type)
	}
	if strings.Join(baseline.Required, ",") != strings.Join(current.Required, ",") {
		return fmt.Errorf("%s required changed: %v -> %v", name, baseline.Required, current.Required)
	}
	for key, prop := range baseline.Properties {
		cur, ok := current.Properties[key]
		if !ok {
			return fmt.Errorf("%s property %q removed", name, key)
		}
		if prop != cur {
			return fmt.Errorf("%s property %q changed: %+v -> %+v", name, key, prop, cur)
		}
	}
	return nil
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}
