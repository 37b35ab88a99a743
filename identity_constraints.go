package xsd

import (
	"fmt"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// IdentityConstraintKind represents the type of identity constraint
type IdentityConstraintKind string

const (
	KeyConstraint    IdentityConstraintKind = "key"
	KeyRefConstraint IdentityConstraintKind = "keyref"
	UniqueConstraint IdentityConstraintKind = "unique"
)

// IdentityConstraint represents an identity constraint (key, keyref, or unique)
type IdentityConstraint struct {
	Name     string
	Kind     IdentityConstraintKind
	Selector *Selector
	Fields   []*Field
	Refer    QName // For keyref, refers to a key or unique constraint
}

// Selector represents the xs:selector element
type Selector struct {
	XPath string // XPath expression to select nodes
}

// Field represents the xs:field element
type Field struct {
	XPath string // XPath expression to select field value
}

// IdentityConstraintValidator validates identity constraints in XML documents
type IdentityConstraintValidator struct {
	constraints map[string]*IdentityConstraint         // Map of constraint name to constraint
	keyValues   map[string]map[string][]xmldom.Element // constraint name -> concatenated field values -> elements
}

// NewIdentityConstraintValidator creates a new identity constraint validator
func NewIdentityConstraintValidator() *IdentityConstraintValidator {
	return &IdentityConstraintValidator{
		constraints: make(map[string]*IdentityConstraint),
		keyValues:   make(map[string]map[string][]xmldom.Element),
	}
}

// AddConstraint adds an identity constraint to the validator
func (v *IdentityConstraintValidator) AddConstraint(constraint *IdentityConstraint) {
	v.constraints[constraint.Name] = constraint
	v.keyValues[constraint.Name] = make(map[string][]xmldom.Element)
}

// Validate validates all identity constraints in the document
func (v *IdentityConstraintValidator) Validate(doc xmldom.Document) []Violation {
	violations := []Violation{}

	// First pass: collect all key values
	for name, constraint := range v.constraints {
		if constraint.Kind == KeyConstraint || constraint.Kind == UniqueConstraint {
			selectedNodes := v.evaluateSelector(doc, constraint.Selector)

			for _, node := range selectedNodes {
				fieldValues := v.extractFieldValues(node, constraint.Fields)
				if len(fieldValues) == 0 {
					continue // Skip if no field values found
				}

				// Concatenate field values to create a unique key
				keyValue := strings.Join(fieldValues, "|")

				// Check for duplicates
				if existingNodes, exists := v.keyValues[name][keyValue]; exists {
					// For key and unique, duplicates are not allowed
					violations = append(violations, Violation{
						Element: node,
						Code:    "cvc-identity-constraint.4.1",
						Message: fmt.Sprintf("Duplicate %s constraint '%s' value: %s",
							constraint.Kind, name, keyValue),
					})
					// Still add it to track all duplicates
					v.keyValues[name][keyValue] = append(existingNodes, node)
				} else {
					v.keyValues[name][keyValue] = []xmldom.Element{node}
				}

				// For key constraints, all fields must be non-null
				if constraint.Kind == KeyConstraint {
					for i, fieldValue := range fieldValues {
						if fieldValue == "" {
							violations = append(violations, Violation{
								Element: node,
								Code:    "cvc-identity-constraint.4.2.2",
								Message: fmt.Sprintf("Key constraint '%s' field %d cannot be null",
									name, i+1),
							})
						}
					}
				}
			}
		}
	}

	// Second pass: validate keyrefs
	for name, constraint := range v.constraints {
		if constraint.Kind == KeyRefConstraint {
			selectedNodes := v.evaluateSelector(doc, constraint.Selector)

			// Find the referenced key/unique constraint
			referencedConstraint, exists := v.constraints[constraint.Refer.Local]
			if !exists {
				violations = append(violations, Violation{
					Code: "src-identity-constraint.2.2.2",
					Message: fmt.Sprintf("Keyref '%s' refers to unknown constraint '%s'",
						name, constraint.Refer.Local),
				})
				continue
			}

			for _, node := range selectedNodes {
				fieldValues := v.extractFieldValues(node, constraint.Fields)
				if len(fieldValues) == 0 {
					continue
				}

				keyValue := strings.Join(fieldValues, "|")

				// Check if this keyref value exists in the referenced constraint
				if _, exists := v.keyValues[constraint.Refer.Local][keyValue]; !exists {
					violations = append(violations, Violation{
						Element: node,
						Code:    "cvc-identity-constraint.4.3",
						Message: fmt.Sprintf("Keyref '%s' value '%s' does not match any %s '%s'",
							name, keyValue, referencedConstraint.Kind, constraint.Refer.Local),
					})
				}
			}
		}
	}

	return violations
}

// evaluateSelector evaluates the selector XPath to find matching nodes,
// delegating to the shared tree-adapter-polymorphic engine in xpath.go.
func (v *IdentityConstraintValidator) evaluateSelector(doc xmldom.Document, selector *Selector) []xmldom.Element {
	if selector == nil || selector.XPath == "" {
		return nil
	}
	return EvaluateXMLPath(doc.DocumentElement(), selector.XPath)
}

// extractFieldValues extracts field values from a node using field XPaths
func (v *IdentityConstraintValidator) extractFieldValues(node xmldom.Element, fields []*Field) []string {
	values := make([]string, 0, len(fields))

	for _, field := range fields {
		values = append(values, EvaluateXMLFieldPath(node, field.XPath))
	}

	return values
}
