package xsd

import (
	"fmt"
	"regexp"

	"github.com/agentflare-ai/go-xmldom"
)

// SchemaValidator runs the self-check pass over a raw XSD document before it
// is handed to Parse (§4.8's CheckSchema option): a lightweight, purely
// syntactic pass over the meta-schema's own shape (required attributes,
// mutually-exclusive attribute pairs, NCName well-formedness, id uniqueness)
// rather than a full XSD-of-XSD schema validation. Findings accumulate as
// *ParseError values so a caller can feed errs[0] straight into
// wrapParse/errors.Is chains instead of re-wrapping a bare string.
type SchemaValidator struct {
	errors []error
	ids    map[string]xmldom.Element
}

func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		errors: []error{},
		ids:    make(map[string]xmldom.Element),
	}
}

var ncNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._\-]*$`)

func isValidNCName(s string) bool {
	return s != "" && ncNamePattern.MatchString(s)
}

func isNonNegativeInteger(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// elementCheckers dispatches validateElement's per-local-name rules. Built
// once at package init rather than as a switch so adding a rule for a new
// XSD construct (e.g. an XSD 1.1 facet this validator chooses to accept) is
// a map entry, not a new switch arm threaded through validateElement.
var elementCheckers = map[string]func(*SchemaValidator, xmldom.Element){
	"simpleType":     (*SchemaValidator).checkSimpleType,
	"complexType":    (*SchemaValidator).checkComplexType,
	"element":        (*SchemaValidator).checkElementDecl,
	"attribute":      (*SchemaValidator).checkAttributeDecl,
	"restriction":    (*SchemaValidator).checkRestriction,
	"extension":      (*SchemaValidator).checkExtension,
	"sequence":       (*SchemaValidator).checkModelGroup,
	"choice":         (*SchemaValidator).checkModelGroup,
	"all":            (*SchemaValidator).checkModelGroup,
	"group":          (*SchemaValidator).checkGroup,
	"attributeGroup": (*SchemaValidator).checkAttributeGroup,
	"include":        (*SchemaValidator).checkInclude,
	"any":            (*SchemaValidator).checkAny,
	"anyAttribute":   (*SchemaValidator).checkAnyAttribute,
	"unique":         (*SchemaValidator).checkIdentityConstraint,
	"key":            (*SchemaValidator).checkIdentityConstraint,
	"keyref":         (*SchemaValidator).checkIdentityConstraint,
	"selector":       (*SchemaValidator).checkXPathElement,
	"field":          (*SchemaValidator).checkXPathElement,
	"notation":       (*SchemaValidator).checkNotation,
	"union":          (*SchemaValidator).checkUnion,
	"list":           (*SchemaValidator).checkList,
	"enumeration":    (*SchemaValidator).checkFacet,
	"pattern":        (*SchemaValidator).checkFacet,
	"length":         (*SchemaValidator).checkFacet,
	"minLength":      (*SchemaValidator).checkFacet,
	"maxLength":      (*SchemaValidator).checkFacet,
	"minInclusive":   (*SchemaValidator).checkFacet,
	"maxInclusive":   (*SchemaValidator).checkFacet,
	"minExclusive":   (*SchemaValidator).checkFacet,
	"maxExclusive":   (*SchemaValidator).checkFacet,
	"totalDigits":    (*SchemaValidator).checkFacet,
	"fractionDigits": (*SchemaValidator).checkFacet,
	"whiteSpace":     (*SchemaValidator).checkFacet,
	"simpleContent":  (*SchemaValidator).checkContentModel,
	"complexContent": (*SchemaValidator).checkContentModel,
	// "schema", "import", "annotation", "documentation", "appinfo" need no
	// structural check beyond recursing into their children.
	"schema":        nil,
	"import":        nil,
	"annotation":    nil,
	"documentation": nil,
	"appinfo":       nil,
}

// ValidateSchema walks doc and reports every structural violation found; an
// empty result means the document passed the self-check, not that it is a
// semantically valid schema (that is Parse's and the registry builder's job).
func (sv *SchemaValidator) ValidateSchema(doc xmldom.Document) []error {
	sv.errors = sv.errors[:0]
	sv.ids = make(map[string]xmldom.Element)

	if doc == nil {
		return []error{wrapParse("", "nil document", nil)}
	}
	root := doc.DocumentElement()
	if root == nil {
		return []error{wrapParse("", "no root element", nil)}
	}
	if string(root.NamespaceURI()) != XSDNamespace || string(root.LocalName()) != "schema" {
		sv.fail("document root must be xs:schema element")
	}

	sv.validateElement(root)
	return sv.errors
}

func (sv *SchemaValidator) validateElement(elem xmldom.Element) {
	if elem == nil {
		return
	}
	sv.checkIDAttribute(elem)

	if string(elem.NamespaceURI()) == XSDNamespace {
		local := string(elem.LocalName())
		checker, known := elementCheckers[local]
		switch {
		case !known:
			sv.failAt(elem, fmt.Sprintf("unknown XSD element: %s", local))
		case checker != nil:
			checker(sv, elem)
		}
	}

	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		if child := children.Item(i); child != nil {
			sv.validateElement(child)
		}
	}
}

func (sv *SchemaValidator) checkIDAttribute(elem xmldom.Element) {
	if !elem.HasAttribute("id") {
		return
	}
	id := string(elem.GetAttribute("id"))
	switch {
	case id == "":
		sv.failAt(elem, "id attribute cannot be empty")
	case !isValidNCName(id):
		sv.failAt(elem, fmt.Sprintf("invalid id value %q: must be a valid NCName", id))
	default:
		if existing, seen := sv.ids[id]; seen {
			sv.failAt(elem, fmt.Sprintf("duplicate id value %q", id))
			if existing != nil {
				sv.failAt(existing, fmt.Sprintf("id %q already defined here", id))
			}
		} else {
			sv.ids[id] = elem
		}
	}
}

func isGlobal(elem xmldom.Element) bool {
	parent := elem.ParentNode()
	return parent != nil && string(parent.LocalName()) == "schema"
}

func hasChild(elem xmldom.Element, localNames ...string) bool {
	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		for _, name := range localNames {
			if string(child.LocalName()) == name {
				return true
			}
		}
	}
	return false
}

func countChildren(elem xmldom.Element, localName string) int {
	n := 0
	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child != nil && string(child.NamespaceURI()) == XSDNamespace && string(child.LocalName()) == localName {
			n++
		}
	}
	return n
}

func (sv *SchemaValidator) checkGlobalOrLocalName(elem xmldom.Element, kind string) {
	name := string(elem.GetAttribute("name"))
	if isGlobal(elem) {
		if name == "" {
			sv.failAt(elem, fmt.Sprintf("global %s must have a name attribute", kind))
			return
		}
	} else if name != "" {
		sv.failAt(elem, fmt.Sprintf("local %s must not have a name attribute", kind))
		return
	}
	if name != "" && !isValidNCName(name) {
		sv.failAt(elem, fmt.Sprintf("invalid %s name %q: must be a valid NCName", kind, name))
	}
}

func (sv *SchemaValidator) checkSimpleType(elem xmldom.Element) {
	sv.checkGlobalOrLocalName(elem, "simpleType")

	count := countChildren(elem, "restriction") + countChildren(elem, "list") + countChildren(elem, "union")
	switch {
	case count == 0:
		sv.failAt(elem, "simpleType must have exactly one of: restriction, list, or union")
	case count > 1:
		sv.failAt(elem, "simpleType cannot have more than one of: restriction, list, or union")
	}
}

func (sv *SchemaValidator) checkComplexType(elem xmldom.Element) {
	sv.checkGlobalOrLocalName(elem, "complexType")
	sv.checkBooleanAttribute(elem, "mixed")
	sv.checkBooleanAttribute(elem, "abstract")
}

func (sv *SchemaValidator) checkBooleanAttribute(elem xmldom.Element, attr string) {
	v := string(elem.GetAttribute(attr))
	if v != "" && v != "true" && v != "false" {
		sv.failAt(elem, fmt.Sprintf("invalid %s value %q: must be 'true' or 'false'", attr, v))
	}
}

func (sv *SchemaValidator) checkElementDecl(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	ref := string(elem.GetAttribute("ref"))

	if name != "" && ref != "" {
		sv.failAt(elem, "element cannot have both 'name' and 'ref' attributes")
	}
	if isGlobal(elem) && name == "" && ref == "" {
		sv.failAt(elem, "global element must have a name attribute")
	}
	if name != "" && !isValidNCName(name) {
		sv.failAt(elem, fmt.Sprintf("invalid element name %q: must be a valid NCName", name))
	}
	sv.checkOccurrences(elem)

	if string(elem.GetAttribute("type")) != "" && hasChild(elem, "simpleType", "complexType") {
		sv.failAt(elem, "element cannot have both 'type' attribute and inline type definition")
	}
}

func (sv *SchemaValidator) checkAttributeDecl(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	ref := string(elem.GetAttribute("ref"))
	if name != "" && ref != "" {
		sv.failAt(elem, "attribute cannot have both 'name' and 'ref' attributes")
	}
	if name != "" && !isValidNCName(name) {
		sv.failAt(elem, fmt.Sprintf("invalid attribute name %q: must be a valid NCName", name))
	}

	if use := string(elem.GetAttribute("use")); use != "" && use != "optional" && use != "required" && use != "prohibited" {
		sv.failAt(elem, fmt.Sprintf("invalid use value %q: must be 'optional', 'required', or 'prohibited'", use))
	}

	if elem.GetAttribute("default") != "" && elem.GetAttribute("fixed") != "" {
		sv.failAt(elem, "attribute cannot have both 'default' and 'fixed' attributes")
	}
}

func (sv *SchemaValidator) checkOccurrences(elem xmldom.Element) {
	minStr := string(elem.GetAttribute("minOccurs"))
	maxStr := string(elem.GetAttribute("maxOccurs"))

	minVal := 1
	if minStr != "" {
		if !isNonNegativeInteger(minStr) {
			sv.failAt(elem, fmt.Sprintf("invalid minOccurs value %q: must be non-negative integer", minStr))
			return
		}
		if _, err := fmt.Sscanf(minStr, "%d", &minVal); err != nil {
			sv.failAt(elem, fmt.Sprintf("invalid minOccurs value %q: must be a valid integer", minStr))
			return
		}
	}

	if maxStr == "" || maxStr == "unbounded" {
		return
	}
	if !isNonNegativeInteger(maxStr) {
		sv.failAt(elem, fmt.Sprintf("invalid maxOccurs value %q: must be non-negative integer or 'unbounded'", maxStr))
		return
	}
	maxVal := 1
	if _, err := fmt.Sscanf(maxStr, "%d", &maxVal); err != nil {
		sv.failAt(elem, fmt.Sprintf("invalid maxOccurs value %q: must be a valid integer", maxStr))
		return
	}
	if minVal > maxVal {
		sv.failAt(elem, fmt.Sprintf("minOccurs (%d) cannot be greater than maxOccurs (%d)", minVal, maxVal))
	}
}

func (sv *SchemaValidator) checkRestriction(elem xmldom.Element) {
	if elem.GetAttribute("base") == "" && !hasChild(elem, "simpleType") {
		sv.failAt(elem, "restriction must have either 'base' attribute or inline simpleType")
	}
}

func (sv *SchemaValidator) checkExtension(elem xmldom.Element) {
	if elem.GetAttribute("base") == "" {
		sv.failAt(elem, "extension must have 'base' attribute")
	}
}

func (sv *SchemaValidator) checkModelGroup(elem xmldom.Element) {
	sv.checkOccurrences(elem)
	if string(elem.LocalName()) != "all" {
		return
	}

	if min := string(elem.GetAttribute("minOccurs")); min != "" && min != "0" && min != "1" {
		sv.failAt(elem, "xs:all minOccurs must be 0 or 1")
	}
	if max := string(elem.GetAttribute("maxOccurs")); max != "" && max != "1" {
		sv.failAt(elem, "xs:all maxOccurs must be 1")
	}

	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.LocalName()) != "element" {
			continue
		}
		if childMax := string(child.GetAttribute("maxOccurs")); childMax != "" && childMax != "0" && childMax != "1" {
			sv.failAt(child, "elements within xs:all must have maxOccurs of 0 or 1 (XSD 1.0)")
		}
	}
}

func (sv *SchemaValidator) checkGroup(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	ref := string(elem.GetAttribute("ref"))
	if name != "" && ref != "" {
		sv.failAt(elem, "group cannot have both 'name' and 'ref' attributes")
	}
	if isGlobal(elem) {
		if name == "" && ref == "" {
			sv.failAt(elem, "global group must have a name attribute")
		}
	} else if ref == "" && name == "" {
		sv.failAt(elem, "group reference must have 'ref' attribute")
	}
	if name != "" && !isValidNCName(name) {
		sv.failAt(elem, fmt.Sprintf("invalid group name %q: must be a valid NCName", name))
	}
}

func (sv *SchemaValidator) checkAttributeGroup(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	ref := string(elem.GetAttribute("ref"))
	if name != "" && ref != "" {
		sv.failAt(elem, "attributeGroup cannot have both 'name' and 'ref' attributes")
	}
	if name != "" && !isValidNCName(name) {
		sv.failAt(elem, fmt.Sprintf("invalid attributeGroup name %q: must be a valid NCName", name))
	}
}

func (sv *SchemaValidator) checkInclude(elem xmldom.Element) {
	if elem.GetAttribute("schemaLocation") == "" {
		sv.failAt(elem, "include must have 'schemaLocation' attribute")
	}
}

func (sv *SchemaValidator) checkProcessContents(elem xmldom.Element) {
	if pc := string(elem.GetAttribute("processContents")); pc != "" && pc != "strict" && pc != "lax" && pc != "skip" {
		sv.failAt(elem, fmt.Sprintf("invalid processContents value %q: must be 'strict', 'lax', or 'skip'", pc))
	}
}

func (sv *SchemaValidator) checkAny(elem xmldom.Element) {
	sv.checkOccurrences(elem)
	sv.checkProcessContents(elem)
}

func (sv *SchemaValidator) checkAnyAttribute(elem xmldom.Element) {
	sv.checkProcessContents(elem)
}

func (sv *SchemaValidator) checkIdentityConstraint(elem xmldom.Element) {
	local := string(elem.LocalName())
	name := string(elem.GetAttribute("name"))
	if name == "" {
		sv.failAt(elem, fmt.Sprintf("%s must have 'name' attribute", local))
	} else if !isValidNCName(name) {
		sv.failAt(elem, fmt.Sprintf("invalid %s name %q: must be a valid NCName", local, name))
	}

	if local == "keyref" && elem.GetAttribute("refer") == "" {
		sv.failAt(elem, "keyref must have 'refer' attribute")
	}

	if !hasChild(elem, "selector") {
		sv.failAt(elem, fmt.Sprintf("%s must have a selector child element", local))
	}
	if countChildren(elem, "field") == 0 {
		sv.failAt(elem, fmt.Sprintf("%s must have at least one field child element", local))
	}
}

func (sv *SchemaValidator) checkXPathElement(elem xmldom.Element) {
	if elem.GetAttribute("xpath") == "" {
		sv.failAt(elem, fmt.Sprintf("%s must have 'xpath' attribute", elem.LocalName()))
	}
}

func (sv *SchemaValidator) checkNotation(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	if name == "" {
		sv.failAt(elem, "notation must have 'name' attribute")
	} else if !isValidNCName(name) {
		sv.failAt(elem, fmt.Sprintf("invalid notation name %q: must be a valid NCName", name))
	}
	if elem.GetAttribute("public") == "" && elem.GetAttribute("system") == "" {
		sv.failAt(elem, "notation must have either 'public' or 'system' attribute")
	}
}

func (sv *SchemaValidator) checkUnion(elem xmldom.Element) {
	if elem.GetAttribute("memberTypes") == "" && !hasChild(elem, "simpleType") {
		sv.failAt(elem, "union must have either 'memberTypes' attribute or inline simpleType elements")
	}
}

func (sv *SchemaValidator) checkList(elem xmldom.Element) {
	itemType := elem.GetAttribute("itemType") != ""
	inline := hasChild(elem, "simpleType")
	switch {
	case !itemType && !inline:
		sv.failAt(elem, "list must have either 'itemType' attribute or inline simpleType element")
	case itemType && inline:
		sv.failAt(elem, "list cannot have both 'itemType' attribute and inline simpleType element")
	}
}

func (sv *SchemaValidator) checkFacet(elem xmldom.Element) {
	if elem.GetAttribute("value") == "" {
		sv.failAt(elem, fmt.Sprintf("%s facet must have 'value' attribute", elem.LocalName()))
	}
	sv.checkBooleanAttribute(elem, "fixed")
}

func (sv *SchemaValidator) checkContentModel(elem xmldom.Element) {
	hasRestriction := hasChild(elem, "restriction")
	hasExtension := hasChild(elem, "extension")
	local := string(elem.LocalName())
	switch {
	case !hasRestriction && !hasExtension:
		sv.failAt(elem, fmt.Sprintf("%s must have either restriction or extension child", local))
	case hasRestriction && hasExtension:
		sv.failAt(elem, fmt.Sprintf("%s cannot have both restriction and extension children", local))
	}
}

func (sv *SchemaValidator) fail(detail string) {
	sv.errors = append(sv.errors, wrapParse("", detail, nil))
}

// failAt records a finding whose Detail names the offending element (by
// local name plus name/ref, when present) so a *ParseError surfaced to a
// caller still points somewhere in the document without needing a source
// span the host's xmldom tree does not carry.
func (sv *SchemaValidator) failAt(elem xmldom.Element, detail string) {
	label := string(elem.GetAttribute("name"))
	if label == "" {
		label = string(elem.GetAttribute("ref"))
	}
	location := "<" + string(elem.LocalName())
	if label != "" {
		location += fmt.Sprintf(" name=%q", label)
	}
	location += ">"
	sv.errors = append(sv.errors, wrapParse("", location+": "+detail, nil))
}
