package xsd

import (
	"fmt"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// ValidateElementFixedDefault checks an element's content against decl.Fixed
// (§4.9's fixed-value equality check). Elements with child elements are
// skipped: a fixed value constrains simple content, not a mixed/complex
// content model, so there is nothing comparable to check.
func ValidateElementFixedDefault(elem xmldom.Element, decl *ElementDecl) []Violation {
	if decl == nil || decl.Fixed == "" {
		return nil
	}

	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		if children.Item(i) != nil {
			return nil
		}
	}

	content := strings.TrimSpace(string(elem.TextContent()))
	if content == decl.Fixed {
		return nil
	}
	return []Violation{{
		Element: elem,
		Code:    "cvc-elt.5.2.2",
		Message: fmt.Sprintf("Element '%s' must have fixed value '%s' but has '%s'", decl.Name.Local, decl.Fixed, content),
	}}
}

// ValidateAttributeFixedDefault checks an attribute's value against
// decl.Fixed. attr is nil when the attribute was omitted from the instance;
// an omitted non-required attribute with a fixed value is treated as though
// the fixed value were supplied (§4.9), so its absence alone is not a
// violation — only a present, contradicting value is.
func ValidateAttributeFixedDefault(attr xmldom.Node, decl *AttributeDecl, elem xmldom.Element) []Violation {
	if decl == nil || decl.Fixed == "" {
		return nil
	}

	value := decl.Fixed
	switch {
	case attr != nil:
		value = string(attr.NodeValue())
	case decl.Use == RequiredUse:
		// A missing required attribute is reported elsewhere; nothing to
		// compare against decl.Fixed here.
		return nil
	}

	if value == decl.Fixed {
		return nil
	}
	return []Violation{{
		Element: elem,
		Code:    "cvc-attribute.4",
		Message: fmt.Sprintf("Attribute '%s' must have fixed value '%s' but has '%s'", decl.Name.Local, decl.Fixed, value),
	}}
}
