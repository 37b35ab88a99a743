package xsd

import (
	"fmt"
	"net/http"

	"github.com/agentflare-ai/go-xmldom"
)

// DocumentOptions configures NewSchemaDocument (§4.8).
type DocumentOptions struct {
	// BaseURI resolves a relative Location, and anchors relative
	// schemaLocation hints found inside the document.
	BaseURI string

	// Registry is the GlobalRegistry this document and its transitive
	// include/import/redefine graph register into. When nil, a fresh
	// clone of the frozen meta-schema registry is used if one has been
	// bootstrapped (see metaschema.go), otherwise a new empty registry.
	// Build is only run automatically when this constructor created the
	// registry itself; a caller-supplied registry is left for the
	// caller to Build once every document it cares about is registered.
	Registry *GlobalRegistry

	// CheckSchema runs the bundled XSD-of-XSD self-validator
	// (schema_validator.go) against the document before compiling it.
	CheckSchema bool

	HTTPClient *http.Client
}

// NewSchemaDocument loads, validates, and compiles the XSD document at
// location (or parses doc directly when non-nil, with location used only
// as its identity/URI) into a *Schema, recursively following
// xs:include/xs:import/xs:redefine, and registers every document it
// touches with opts.Registry (§4.8).
func NewSchemaDocument(location string, doc xmldom.Document, opts DocumentOptions) (*Schema, error) {
	registry := opts.Registry
	ownsRegistry := registry == nil
	if ownsRegistry {
		if metaRegistry != nil {
			registry = metaRegistry.Copy()
		} else {
			registry = NewGlobalRegistry()
		}
	}

	schema, err := loadSchemaDocument(location, doc, opts.BaseURI, "", registry, opts.CheckSchema, opts.HTTPClient, map[string]bool{})
	if err != nil {
		return nil, err
	}

	if ownsRegistry {
		if err := registry.Build(); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// loadSchemaDocument is the recursive worker behind NewSchemaDocument.
// visiting guards against an include/import cycle resolving to the same
// canonical URI. chameleonNamespace, when non-empty, is the including
// document's target namespace, adopted by a document with no
// targetNamespace of its own (§4.8 chameleon include).
func loadSchemaDocument(location string, doc xmldom.Document, baseURI, chameleonNamespace string, registry *GlobalRegistry, checkSchema bool, httpClient *http.Client, visiting map[string]bool) (*Schema, error) {
	var canonical string
	var err error

	if doc == nil {
		doc, canonical, err = LoadXMLResource(location, baseURI, httpClient)
		if err != nil {
			return nil, err
		}
	} else {
		canonical = location
	}

	if visiting[canonical] && canonical != "" {
		return nil, wrapParse(canonical, "circular schema include/import", nil)
	}
	if canonical != "" {
		visiting[canonical] = true
		defer delete(visiting, canonical)
	}

	if existing, ok := registryLookupByURI(registry, canonical); ok && canonical != "" {
		return existing, nil
	}

	root := doc.DocumentElement()
	if root == nil {
		return nil, wrapParse(canonical, "document has no root element", nil)
	}
	if string(root.NamespaceURI()) != XSDNamespace || string(root.LocalName()) != "schema" {
		return nil, wrapParse(canonical, "root element is not {"+XSDNamespace+"}schema", nil)
	}

	if checkSchema {
		sv := NewSchemaValidator()
		if errs := sv.ValidateSchema(doc); len(errs) > 0 {
			return nil, wrapParse(canonical, "schema failed self-validation", errs[0])
		}
	}

	schema, err := Parse(doc)
	if err != nil {
		return nil, wrapParse(canonical, "failed to compile schema", err)
	}
	schema.URI = canonical
	schema.ElementFormDefault = firstNonEmpty(string(root.GetAttribute("elementFormDefault")), "unqualified")
	schema.AttributeFormDefault = firstNonEmpty(string(root.GetAttribute("attributeFormDefault")), "unqualified")
	schema.Prefixes = harvestPrefixes(doc)

	if schema.TargetNamespace == "" && chameleonNamespace != "" {
		rekeyChameleonNamespace(schema, chameleonNamespace)
	}

	if err := registry.Register(schema); err != nil {
		return nil, err
	}

	children := root.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}

		switch string(child.LocalName()) {
		case "include":
			if err := processInclude(schema, child, baseURI, registry, checkSchema, httpClient, visiting, nil); err != nil {
				return nil, err
			}
		case "redefine":
			if err := processInclude(schema, child, baseURI, registry, checkSchema, httpClient, visiting, child); err != nil {
				return nil, err
			}
		case "import":
			if err := processImport(child, schema.URI, registry, checkSchema, httpClient, visiting); err != nil {
				return nil, err
			}
		}
	}

	return schema, nil
}

func registryLookupByURI(registry *GlobalRegistry, uri string) (*Schema, bool) {
	if uri == "" {
		return nil, false
	}
	for _, s := range registry.IterSchemas() {
		if s.URI == uri {
			return s, true
		}
	}
	return nil, false
}

// processInclude handles both xs:include (redefineElem nil) and
// xs:redefine (redefineElem is the <xs:redefine> element itself, whose
// children are the redefining component declarations). An included
// document with no targetNamespace is a chameleon include (§4.8): it
// adopts the including document's target namespace rather than failing.
// An include whose targetNamespace differs from the including document's
// is a schema error.
func processInclude(parent *Schema, elem xmldom.Element, baseURI string, registry *GlobalRegistry, checkSchema bool, httpClient *http.Client, visiting map[string]bool, redefineElem xmldom.Element) error {
	location := string(elem.GetAttribute("schemaLocation"))
	if location == "" {
		return wrapParse(parent.URI, "include/redefine missing schemaLocation", nil)
	}

	doc, canonical, err := LoadXMLResource(location, firstNonEmpty(parent.URI, baseURI), httpClient)
	if err != nil {
		return err
	}

	root := doc.DocumentElement()
	if root != nil {
		if tns := string(root.GetAttribute("targetNamespace")); tns != "" && tns != parent.TargetNamespace {
			return wrapParse(canonical, fmt.Sprintf("include targetNamespace %q does not match including schema's %q", tns, parent.TargetNamespace), nil)
		}
	}

	included, err := loadSchemaDocument(canonical, doc, baseURI, parent.TargetNamespace, registry, checkSchema, httpClient, visiting)
	if err != nil {
		return err
	}

	if redefineElem != nil {
		applyRedefine(redefineElem, included)
	}

	parent.ImportedSchemas[canonical] = included
	return nil
}

// applyRedefine implements xs:redefine's override semantics (§4.8, new
// behavior: the host schema.go never had an <xs:redefine> handler at
// all). Each top-level simpleType/complexType/group/attributeGroup
// declared directly inside the <xs:redefine> is compiled with the
// existing per-kind parse method against a scratch schema sharing the
// included document's namespace, then replaces the same-named component
// the included schema just contributed. A redefining declaration's own
// reference to that same name (its restriction/extension base, or a
// group/attributeGroup's internal ref) is rebound to the pre-redefinition
// original, so "restriction base=<the same QName>" means what it says
// instead of resolving to a self-cycle.
func applyRedefine(redefineElem xmldom.Element, included *Schema) {
	scratch := &Schema{
		TargetNamespace: included.TargetNamespace,
		TypeDefs:        make(map[QName]Type),
		Groups:          make(map[QName]*ModelGroup),
		AttributeGroups: make(map[QName]*AttributeGroup),
		ElementDecls:    make(map[QName]*ElementDecl),
	}

	children := redefineElem.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		name := string(child.GetAttribute("name"))
		if name == "" {
			continue
		}
		qn := QName{Namespace: included.TargetNamespace, Local: name}

		switch string(child.LocalName()) {
		case "simpleType":
			original, hadOriginal := included.TypeDefs[qn]
			if err := scratch.parseSimpleType(child); err != nil {
				continue
			}
			newDef, ok := scratch.TypeDefs[qn]
			if !ok {
				continue
			}
			if hadOriginal {
				rebindRedefinedSimpleBase(newDef, qn, original)
			}
			included.TypeDefs[qn] = newDef

		case "complexType":
			original, hadOriginal := included.TypeDefs[qn]
			if err := scratch.parseComplexType(child); err != nil {
				continue
			}
			newDef, ok := scratch.TypeDefs[qn]
			if !ok {
				continue
			}
			if hadOriginal {
				rebindRedefinedComplexBase(newDef, qn, original)
			}
			included.TypeDefs[qn] = newDef

		case "group":
			original, hadOriginal := included.Groups[qn]
			if err := scratch.parseGroup(child); err != nil {
				continue
			}
			newGroup, ok := scratch.Groups[qn]
			if !ok {
				continue
			}
			if hadOriginal {
				for idx, p := range newGroup.Particles {
					if gr, ok := p.(*GroupRef); ok && gr.Ref == qn {
						newGroup.Particles[idx] = &inlineGroupParticle{group: original, minOcc: gr.MinOcc, maxOcc: gr.MaxOcc}
					}
				}
			}
			included.Groups[qn] = newGroup

		case "attributeGroup":
			original, hadOriginal := included.AttributeGroups[qn]
			if err := scratch.parseAttributeGroup(child); err != nil {
				continue
			}
			newGroup, ok := scratch.AttributeGroups[qn]
			if !ok {
				continue
			}
			if hadOriginal {
				newGroup.Attributes = append(append([]*AttributeDecl(nil), original.Attributes...), newGroup.Attributes...)
			}
			included.AttributeGroups[qn] = newGroup
		}
	}
}

// rebindRedefinedSimpleBase handles a redefined simple type whose
// restriction base names the type itself, the one legal form of
// self-reference xs:redefine allows: it prepends the pre-redefinition
// original's facets to the new definition's own. The restriction base
// QName is left unchanged.
func rebindRedefinedSimpleBase(newDef Type, self QName, original Type) {
	st, ok := newDef.(*SimpleType)
	if !ok || st.Restriction == nil || st.Restriction.Base != self {
		return
	}
	if origType, ok := original.(*SimpleType); ok {
		st.Restriction.Facets = append(append([]FacetValidator(nil), baseFacets(origType)...), st.Restriction.Facets...)
	}
}

func baseFacets(t *SimpleType) []FacetValidator {
	if t.Restriction == nil {
		return nil
	}
	return t.Restriction.Facets
}

// rebindRedefinedComplexBase points a redefined complex type's
// restriction/extension base at the pre-redefinition original when that
// base names the type itself.
func rebindRedefinedComplexBase(newDef Type, self QName, original Type) {
	ct, ok := newDef.(*ComplexType)
	if !ok {
		return
	}
	origCT, ok := original.(*ComplexType)
	if !ok {
		return
	}
	switch c := ct.Content.(type) {
	case *ComplexContent:
		if c.Extension != nil && c.Extension.Base == self {
			c.Extension.Content = origCT.Content
		}
		if c.Restriction != nil && c.Restriction.Base == self {
			c.Restriction.Content = origCT.Content
		}
	case *SimpleContent:
		if c.Extension != nil && c.Extension.Base == self {
			if origSC, ok := origCT.Content.(*SimpleContent); ok {
				c.Extension.Content = origSC
			}
		}
	}
}

// inlineGroupParticle wraps a pre-redefinition group so it can stand in
// for a GroupRef particle without the resolver needing a registry lookup
// for a name that the registry no longer maps to that original.
type inlineGroupParticle struct {
	group  *ModelGroup
	minOcc int
	maxOcc int
}

func (p *inlineGroupParticle) MinOccurs() int { return p.minOcc }
func (p *inlineGroupParticle) MaxOccurs() int { return p.maxOcc }
func (p *inlineGroupParticle) Validate(element xmldom.Element, schema *Schema) []Violation {
	return p.group.Validate(element, schema)
}

func processImport(elem xmldom.Element, parentURI string, registry *GlobalRegistry, checkSchema bool, httpClient *http.Client, visiting map[string]bool) error {
	location := string(elem.GetAttribute("schemaLocation"))
	if location == "" {
		// An import with no schemaLocation only asserts that components
		// in that namespace exist and will be supplied some other way;
		// nothing to load.
		return nil
	}
	_, err := loadSchemaDocument(location, nil, parentURI, "", registry, checkSchema, httpClient, visiting)
	return err
}

// harvestPrefixes builds the prefix -> namespace URI map for a schema
// document, seeding the implicit "xml" prefix (§4.8) that every XML
// document carries whether or not it is declared.
func harvestPrefixes(doc xmldom.Document) map[string]string {
	prefixes := map[string]string{"xml": "http://www.w3.org/XML/1998/namespace"}
	for prefix, ns := range ExtractNamespaces(doc) {
		prefixes[prefix] = ns.URI
	}
	return prefixes
}

// rekeyChameleonNamespace rewrites every QName this document compiled
// under the empty namespace to newNamespace, in place, following a
// chameleon include (§4.8). Parse binds every top-level declaration's
// QName from the document's own (here, absent) targetNamespace at
// compile time, so adoption has to walk the compiled declarations rather
// than just setting schema.TargetNamespace after the fact.
func rekeyChameleonNamespace(schema *Schema, newNamespace string) {
	schema.TargetNamespace = newNamespace

	rekeyQName := func(q *QName) {
		if q.Namespace == "" {
			q.Namespace = newNamespace
		}
	}

	newTypeDefs := make(map[QName]Type, len(schema.TypeDefs))
	for qn, t := range schema.TypeDefs {
		switch v := t.(type) {
		case *SimpleType:
			rekeyQName(&v.QName)
			rekeyQName(&v.Base)
			if v.Restriction != nil {
				rekeyQName(&v.Restriction.Base)
			}
			if v.List != nil {
				rekeyQName(&v.List.ItemType)
			}
			if v.Union != nil {
				for i := range v.Union.MemberTypes {
					rekeyQName(&v.Union.MemberTypes[i])
				}
			}
			newTypeDefs[v.QName] = v
		case *ComplexType:
			rekeyQName(&v.QName)
			rekeyComplexContentBase(v.Content, newNamespace)
			for _, attr := range v.Attributes {
				if attr.Type != nil {
					if st, ok := attr.Type.(*SimpleType); ok {
						rekeyQName(&st.Base)
					}
				}
			}
			newTypeDefs[v.QName] = v
		default:
			newTypeDefs[qn] = t
		}
	}
	schema.TypeDefs = newTypeDefs

	newElements := make(map[QName]*ElementDecl, len(schema.ElementDecls))
	for _, e := range schema.ElementDecls {
		rekeyQName(&e.Name)
		if e.SubstitutionGroup.Local != "" {
			rekeyQName(&e.SubstitutionGroup)
		}
		newElements[e.Name] = e
	}
	schema.ElementDecls = newElements

	newGroups := make(map[QName]*ModelGroup, len(schema.Groups))
	for qn, g := range schema.Groups {
		newQN := qn
		rekeyQName(&newQN)
		newGroups[newQN] = g
	}
	schema.Groups = newGroups

	newAttrGroups := make(map[QName]*AttributeGroup, len(schema.AttributeGroups))
	for _, ag := range schema.AttributeGroups {
		rekeyQName(&ag.Name)
		newAttrGroups[ag.Name] = ag
	}
	schema.AttributeGroups = newAttrGroups

	newSubst := make(map[QName][]QName, len(schema.SubstitutionGroups))
	for head, members := range schema.SubstitutionGroups {
		rekeyQName(&head)
		for i := range members {
			rekeyQName(&members[i])
		}
		newSubst[head] = members
	}
	schema.SubstitutionGroups = newSubst
}

// rekeyComplexContentBase rewrites the base QName(s) a complex type's
// content model carries, in place, as part of rekeyChameleonNamespace.
func rekeyComplexContentBase(content Content, newNamespace string) {
	rekey := func(q *QName) {
		if q.Namespace == "" {
			q.Namespace = newNamespace
		}
	}
	switch c := content.(type) {
	case *SimpleContent:
		if c.Extension != nil {
			rekey(&c.Extension.Base)
		}
		if c.Restriction != nil {
			rekey(&c.Restriction.Base)
		}
	case *ComplexContent:
		if c.Extension != nil {
			rekey(&c.Extension.Base)
		}
		if c.Restriction != nil {
			rekey(&c.Restriction.Base)
		}
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
