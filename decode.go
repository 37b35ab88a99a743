package xsd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// DecodeOptions configures IterDecode/ToDict (§4.9). Zero value is usable:
// Validate and UseDefaults default true via NewDecodeOptions, TextKey
// defaults to "#", AttributePrefix to "@".
type DecodeOptions struct {
	Validate        bool
	Namespaces      map[string]string
	UseDefaults     bool
	SkipErrors      bool
	ForceList       bool
	TextKey         string
	AttributePrefix string
}

// NewDecodeOptions returns the documented defaults (§4.9).
func NewDecodeOptions() DecodeOptions {
	return DecodeOptions{
		Validate:        true,
		UseDefaults:     true,
		TextKey:         "#",
		AttributePrefix: "@",
	}
}

func (o DecodeOptions) withDefaults() DecodeOptions {
	if o.TextKey == "" {
		o.TextKey = "#"
	}
	if o.AttributePrefix == "" {
		o.AttributePrefix = "@"
	}
	return o
}

// Validate validates doc against the schema and returns the first
// violation wrapped as a *ValidationError, or nil.
func (s *Schema) Validate(doc xmldom.Document) error {
	violations := NewValidator(s).Validate(doc)
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations[:1]}
}

// IsValid reports whether doc has no validation violations.
func (s *Schema) IsValid(doc xmldom.Document) bool {
	return len(NewValidator(s).Validate(doc)) == 0
}

// IterErrors validates the whole of doc up front and then yields its
// violations one at a time. The path argument is not used: violations
// anywhere in the document are yielded whatever path is given.
func (s *Schema) IterErrors(doc xmldom.Document, path string) func() (error, bool) {
	violations := NewValidator(s).Validate(doc)
	i := 0
	return func() (error, bool) {
		if i >= len(violations) {
			return nil, false
		}
		v := violations[i]
		i++
		return &ValidationError{Violations: []Violation{v}}, true
	}
}

// DecodeResult is one item yielded by IterDecode: either a decoded value
// or an error, never both.
type DecodeResult struct {
	Value any
	Err   error
}

// IterDecode lazily decodes every instance element matching path (root
// element if path is empty) against its corresponding element declaration.
// With opts.SkipErrors false, iteration stops (after yielding) on the
// first decode/validation error; with it true, iteration continues
// (§7/§4.9).
func (s *Schema) IterDecode(doc xmldom.Document, path string, opts DecodeOptions) func() (DecodeResult, bool) {
	opts = opts.withDefaults()

	var pending error
	if opts.Validate {
		if err := s.Validate(doc); err != nil && opts.SkipErrors {
			pending = err
		} else if err != nil {
			done := false
			return func() (DecodeResult, bool) {
				if done {
					return DecodeResult{}, false
				}
				done = true
				return DecodeResult{Err: err}, true
			}
		}
	}

	targets, decl, err := s.anchorTargets(doc, path)
	if err != nil {
		done := false
		return func() (DecodeResult, bool) {
			if done {
				return DecodeResult{}, false
			}
			done = true
			return DecodeResult{Err: err}, true
		}
	}

	i := 0
	stopped := false
	return func() (DecodeResult, bool) {
		if pending != nil {
			err := pending
			pending = nil
			return DecodeResult{Err: err}, true
		}
		if stopped || i >= len(targets) {
			return DecodeResult{}, false
		}
		elem := targets[i]
		i++
		value, derr := decodeElement(s, decl, elem, opts)
		if derr != nil && !opts.SkipErrors {
			stopped = true
		}
		if derr != nil {
			return DecodeResult{Err: derr}, true
		}
		return DecodeResult{Value: value}, true
	}
}

// ToDict materializes the first value IterDecode would yield, returning
// its error (if any) directly rather than wrapped in a DecodeResult
// (§4.9).
func (s *Schema) ToDict(doc xmldom.Document, path string, opts DecodeOptions) (any, error) {
	next := s.IterDecode(doc, path, opts)
	result, ok := next()
	if !ok {
		return nil, &ParseError{Detail: "no element matched for decoding"}
	}
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Value, nil
}

// anchorTargets resolves path against the schema to find the anchor
// element declaration, then locates every matching instance element by
// re-rooting the path past the document root (§4.9 "path-anchored
// decoding"). An empty path anchors on the document's root element.
func (s *Schema) anchorTargets(doc xmldom.Document, path string) ([]xmldom.Element, *ElementDecl, error) {
	root := doc.DocumentElement()
	if root == nil {
		return nil, nil, &ParseError{Detail: "document has no root element"}
	}

	if path == "" {
		qname := QName{Namespace: string(root.NamespaceURI()), Local: string(root.LocalName())}
		decl := s.lookupElementDecl(qname)
		if decl == nil {
			return nil, nil, &ParseError{Detail: fmt.Sprintf("no element declaration for root '%s'", qname)}
		}
		return []xmldom.Element{root}, decl, nil
	}

	decl, ok := s.Find(path, nil)
	if !ok {
		return nil, nil, &ParseError{Detail: fmt.Sprintf("path %q does not anchor to a known element declaration", path)}
	}
	relative := RelativePath(path, 1, nil)
	var targets []xmldom.Element
	if relative == "." {
		targets = []xmldom.Element{root}
	} else {
		targets = EvaluateXMLPath(root, relative)
	}
	return targets, decl, nil
}

// lookupElementDecl resolves qname against the schema's own declarations,
// falling back to its registry (so cross-document global elements
// resolve too).
func (s *Schema) lookupElementDecl(qname QName) *ElementDecl {
	s.mu.RLock()
	decl, ok := s.ElementDecls[qname]
	s.mu.RUnlock()
	if ok {
		return decl
	}
	if s.registry != nil {
		if decl, ok := s.registry.Elements[qname]; ok {
			return decl
		}
	}
	return nil
}

// decodeElement implements the element decode algorithm of §4.9 given a
// declaration and its matching instance element.
func decodeElement(schema *Schema, decl *ElementDecl, elem xmldom.Element, opts DecodeOptions) (any, error) {
	elemType := decl.Type

	if nilAttr := string(elem.GetAttributeNS(XSINamespace, "nil")); nilAttr == "true" || nilAttr == "1" {
		if !decl.Nillable {
			return nil, &ValidationError{Violations: []Violation{{
				Element: elem, Code: "cvc-elt.3.1",
				Message: fmt.Sprintf("element '%s' has xsi:nil but is not nillable", decl.Name.Local),
			}}}
		}
		return nil, nil
	}

	if override := string(elem.GetAttributeNS(XSINamespace, "type")); override != "" {
		if t := resolveXSIType(schema, override); t != nil {
			elemType = t
		}
	}

	if decl.Fixed != "" {
		content := strings.TrimSpace(getElementTextContent(elem))
		if content != decl.Fixed {
			return nil, &ValidationError{Violations: []Violation{{
				Element: elem, Code: "cvc-elt.5.2.2.1",
				Message: fmt.Sprintf("element '%s' content does not match fixed value '%s'", decl.Name.Local, decl.Fixed),
				Actual:  content,
			}}}
		}
	}

	ct, isComplex := elemType.(*ComplexType)
	if !isComplex {
		content := getElementTextContent(elem)
		if content == "" && opts.UseDefaults && decl.Default != "" {
			content = decl.Default
		}
		return decodeSimpleValue(schema, elemType, content)
	}

	return decodeComplexElement(schema, ct, elem, opts)
}

// decodeSimpleValue lexically parses a simple-typed value per §4.9 step 3.
func decodeSimpleValue(schema *Schema, t Type, content string) (any, error) {
	typeName := "string"
	if t != nil {
		typeName = t.Name().Local
	}
	if st, ok := t.(*SimpleType); ok && st.Restriction != nil {
		for _, facet := range EffectiveFacets(st, schema) {
			if err := facet.Validate(content, st); err != nil {
				return nil, &DecodeError{TypeName: typeName, Value: content, Cause: err}
			}
		}
		if base := builtinBaseName(st); base != "" {
			typeName = base
		}
	}
	value, err := ParseLexical(typeName, content)
	if err != nil {
		return nil, &DecodeError{TypeName: typeName, Value: content, Cause: err}
	}
	return value, nil
}

// decodeComplexElement builds the attribute/text/child mapping for a
// complex-typed element (§4.9 "Decoded value shape").
func decodeComplexElement(schema *Schema, ct *ComplexType, elem xmldom.Element, opts DecodeOptions) (any, error) {
	result := make(map[string]any)

	expectedAttrs := append([]*AttributeDecl(nil), ct.Attributes...)
	expectedAttrs = append(expectedAttrs, schema.ResolveAttributeGroups(ct)...)
	byLocal := make(map[string]*AttributeDecl, len(expectedAttrs))
	for _, a := range expectedAttrs {
		byLocal[a.Name.Local] = a
	}

	attrs := elem.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		attr := attrs.Item(i)
		if attr == nil {
			continue
		}
		local := string(attr.LocalName())
		ns := string(attr.NamespaceURI())
		if ns == "http://www.w3.org/2000/xmlns/" || ns == "xmlns" || local == "xmlns" {
			continue
		}
		decl, ok := byLocal[local]
		if !ok {
			continue
		}
		value, err := decodeSimpleValue(schema, decl.Type, string(attr.NodeValue()))
		if err != nil && !opts.SkipErrors {
			return nil, err
		}
		result[opts.AttributePrefix+local] = value
	}
	if opts.UseDefaults {
		for local, decl := range byLocal {
			key := opts.AttributePrefix + local
			if _, present := result[key]; !present && decl.Default != "" {
				if value, err := decodeSimpleValue(schema, decl.Type, decl.Default); err == nil {
					result[key] = value
				}
			}
		}
	}

	_, simpleContent := ct.Content.(*SimpleContent)
	if simpleContent || ct.Mixed {
		text := getElementTextContent(elem)
		if text != "" {
			result[opts.TextKey] = text
		}
	}
	if simpleContent {
		return result, nil
	}

	children := elem.Children()
	grouped := make(map[QName][]any)
	var order []QName
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil {
			continue
		}
		qname := QName{Namespace: string(child.NamespaceURI()), Local: string(child.LocalName())}

		childDecl := findParticleElementDecl(schema, ct.Content, qname)
		if childDecl == nil {
			childDecl = schema.lookupElementDecl(qname)
		}
		if childDecl == nil {
			if opts.SkipErrors {
				continue
			}
			return nil, &ParseError{Detail: fmt.Sprintf("no element declaration for child '%s'", qname)}
		}

		value, err := decodeElement(schema, childDecl, child, opts)
		if err != nil {
			if opts.SkipErrors {
				continue
			}
			return nil, err
		}
		if _, seen := grouped[qname]; !seen {
			order = append(order, qname)
		}
		grouped[qname] = append(grouped[qname], value)
	}

	for _, qname := range order {
		values := grouped[qname]
		if len(values) == 1 && !opts.ForceList {
			result[qname.Local] = values[0]
		} else {
			result[qname.Local] = values
		}
	}

	return result, nil
}

// findParticleElementDecl resolves qname against the element particles
// reachable from content, recursing into nested model groups and group
// references, so an inline (non-globally-registered) element declaration
// inside a content model still decodes correctly.
func findParticleElementDecl(schema *Schema, content Content, qname QName) *ElementDecl {
	switch c := content.(type) {
	case *ModelGroup:
		return findParticleInGroup(schema, c, qname, make(map[QName]bool))
	case *GroupRef:
		if group, ok := schema.Groups[c.Ref]; ok {
			return findParticleInGroup(schema, group, qname, make(map[QName]bool))
		}
	case *ComplexContent:
		if c.Extension != nil && c.Extension.Content != nil {
			if decl := findParticleElementDecl(schema, c.Extension.Content, qname); decl != nil {
				return decl
			}
		}
		if c.Restriction != nil && c.Restriction.Content != nil {
			return findParticleElementDecl(schema, c.Restriction.Content, qname)
		}
	}
	return nil
}

func findParticleInGroup(schema *Schema, group *ModelGroup, qname QName, visited map[QName]bool) *ElementDecl {
	for _, p := range group.Particles {
		switch particle := p.(type) {
		case *ElementDecl:
			if particle.Name == qname {
				return particle
			}
		case *ElementRef:
			if particle.Ref == qname {
				return schema.lookupElementDecl(qname)
			}
		case *ModelGroup:
			if decl := findParticleInGroup(schema, particle, qname, visited); decl != nil {
				return decl
			}
		case *GroupRef:
			if visited[particle.Ref] {
				continue
			}
			visited[particle.Ref] = true
			if nested, ok := schema.Groups[particle.Ref]; ok {
				if decl := findParticleInGroup(schema, nested, qname, visited); decl != nil {
					return decl
				}
			}
		}
	}
	return nil
}

// resolveXSIType resolves an xsi:type override value to a registered Type.
// Prefixed names are resolved against the schema's own target namespace
// (the common case of a type in the same namespace as the element being
// overridden); unresolved prefixes fall back to a bare local-name search
// across the registry, a deliberate approximation since decoding has no
// access to the instance document's own in-scope namespace declarations
// through the verified xmldom API surface.
func resolveXSIType(schema *Schema, value string) Type {
	qname := schema.parseQName(value)
	if t, ok := schema.TypeDefs[qname]; ok {
		return t
	}
	if schema.registry != nil {
		if t, ok := schema.registry.Types[qname]; ok {
			return t
		}
		local := qname.Local
		if idx := strings.Index(value, ":"); idx >= 0 {
			local = value[idx+1:]
		}
		for qn, t := range schema.registry.Types {
			if qn.Local == local {
				return t
			}
		}
	}
	return nil
}

// Find resolves an XPath-subset path to a single element declaration
// reachable from this schema's top-level elements, descending through
// complex-type content models for multi-step paths (§4.9/§6).
func (s *Schema) Find(path string, namespaces map[string]string) (*ElementDecl, bool) {
	steps := parseXPathSteps(path)
	if len(steps) == 0 {
		return nil, false
	}

	var current *ElementDecl
	for i, step := range steps {
		if step.attribute {
			return nil, false
		}
		var candidate *ElementDecl
		if i == 0 {
			for _, decl := range s.ElementDecls {
				if decl.Name.Local == step.name {
					candidate = decl
					break
				}
			}
			if candidate == nil && s.registry != nil {
				for qn, decl := range s.registry.Elements {
					if qn.Local == step.name {
						candidate = decl
						break
					}
				}
			}
		} else if current != nil {
			if ct, ok := current.Type.(*ComplexType); ok {
				candidate = findParticleInGroupByLocal(s, ct.Content, step.name)
			}
		}
		if candidate == nil {
			return nil, false
		}
		current = candidate
	}
	return current, current != nil
}

func findParticleInGroupByLocal(schema *Schema, content Content, local string) *ElementDecl {
	var group *ModelGroup
	switch c := content.(type) {
	case *ModelGroup:
		group = c
	case *GroupRef:
		group = schema.Groups[c.Ref]
	case *ComplexContent:
		if c.Extension != nil {
			if decl := findParticleInGroupByLocal(schema, c.Extension.Content, local); decl != nil {
				return decl
			}
		}
		return nil
	default:
		return nil
	}
	if group == nil {
		return nil
	}
	for _, p := range group.Particles {
		switch particle := p.(type) {
		case *ElementDecl:
			if particle.Name.Local == local {
				return particle
			}
		case *ElementRef:
			if particle.Ref.Local == local {
				return schema.lookupElementDecl(particle.Ref)
			}
		case *ModelGroup:
			if decl := findParticleInGroupByLocal(schema, particle, local); decl != nil {
				return decl
			}
		case *GroupRef:
			if nested, ok := schema.Groups[particle.Ref]; ok {
				if decl := findParticleInGroupByLocal(schema, nested, local); decl != nil {
					return decl
				}
			}
		}
	}
	return nil
}

// IterFind lazily yields every element declaration matching path (in
// practice 0 or 1, since Find resolves a single descent chain; kept as
// an iterator for interface symmetry with IterErrors/IterDecode).
func (s *Schema) IterFind(path string, namespaces map[string]string) func() (*ElementDecl, bool) {
	decl, ok := s.Find(path, namespaces)
	done := false
	return func() (*ElementDecl, bool) {
		if done || !ok {
			return nil, false
		}
		done = true
		return decl, true
	}
}

// FindAll materializes every declaration IterFind would yield.
func (s *Schema) FindAll(path string, namespaces map[string]string) []*ElementDecl {
	var out []*ElementDecl
	next := s.IterFind(path, namespaces)
	for {
		decl, ok := next()
		if !ok {
			break
		}
		out = append(out, decl)
	}
	return out
}

// Iter yields this schema's top-level element declarations in a
// deterministic (sorted-QName) order, optionally filtered to those whose
// local name equals name.
func (s *Schema) Iter(name string) func() (*ElementDecl, bool) {
	s.mu.RLock()
	qnames := make([]QName, 0, len(s.ElementDecls))
	for qn := range s.ElementDecls {
		if name == "" || qn.Local == name {
			qnames = append(qnames, qn)
		}
	}
	s.mu.RUnlock()
	sort.Slice(qnames, func(i, j int) bool { return qnames[i].String() < qnames[j].String() })

	i := 0
	return func() (*ElementDecl, bool) {
		if i >= len(qnames) {
			return nil, false
		}
		qn := qnames[i]
		i++
		s.mu.RLock()
		decl := s.ElementDecls[qn]
		s.mu.RUnlock()
		return decl, true
	}
}

// IterChildren is an alias of Iter: this schema model keeps only
// top-level element declarations in ElementDecls (inline/local element
// particles live inside their enclosing content model, not a separate
// nesting index), so there is no distinct "children of the schema" set
// beyond the top-level declarations themselves.
func (s *Schema) IterChildren(name string) func() (*ElementDecl, bool) {
	return s.Iter(name)
}
