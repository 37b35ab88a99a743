package xsd

import (
	"strconv"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// TreeAdapter lets a single XPath-subset engine walk two different kinds
// of tree: an XML instance document (xmldom.Element) and a compiled XSD
// declaration graph (ElementDecl/ComplexType/ModelGroup, expanded through
// the registry) (§4.3). A node is an opaque `any`; the adapter is the only
// code that knows how to take it apart.
type TreeAdapter interface {
	// Children returns node's ordered child nodes.
	Children(node any) []any
	// LocalName returns node's unprefixed name ("" for nodes with none,
	// e.g. a declaration-tree group).
	LocalName(node any) string
	// NamespaceURI returns node's namespace, "" if unqualified.
	NamespaceURI(node any) string
	// Attribute returns the named attribute's string value.
	Attribute(node any, local string) (string, bool)
}

// xpathStep is one parsed location step.
type xpathStep struct {
	descendant bool // preceded by "//" (or ".//") rather than "/"
	name       string // "*" for wildcard, "" for self ("."), else a local name
	attribute  bool // true if this step is an "@name" attribute step
	position   int // 1-based predicate "[n]"; 0 means no predicate
}

// parseXPathSteps splits a restricted XPath expression into steps,
// stripping namespace prefixes (the engine matches by local name only,
// matching the host's existing identity-constraint evaluator) (§4.3).
func parseXPathSteps(path string) []xpathStep {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "./")

	leadingDescendant := false
	if strings.HasPrefix(path, ".//") {
		leadingDescendant = true
		path = strings.TrimPrefix(path, ".//")
	} else if strings.HasPrefix(path, "//") {
		leadingDescendant = true
		path = strings.TrimPrefix(path, "//")
	} else if strings.HasPrefix(path, "/") {
		path = strings.TrimPrefix(path, "/")
	}

	if path == "." || path == "" {
		return nil
	}

	var steps []xpathStep
	descendantNext := leadingDescendant
	for _, raw := range strings.Split(path, "/") {
		if raw == "" {
			descendantNext = true // an empty segment means "//" occurred mid-path
			continue
		}

		step := xpathStep{descendant: descendantNext}
		descendantNext = false

		name := raw
		if idx := strings.Index(name, "["); idx >= 0 && strings.HasSuffix(name, "]") {
			if n, err := strconv.Atoi(name[idx+1 : len(name)-1]); err == nil {
				step.position = n
			}
			name = name[:idx]
		}

		if strings.HasPrefix(name, "@") {
			step.attribute = true
			name = strings.TrimPrefix(name, "@")
		}

		if colon := strings.Index(name, ":"); colon > 0 {
			name = name[colon+1:]
		}

		step.name = name
		steps = append(steps, step)
	}
	return steps
}

// EvaluateXPath walks adapter starting at root through the parsed steps of
// path, returning every matching node (§4.3).
func EvaluateXPath(adapter TreeAdapter, root any, path string) []any {
	steps := parseXPathSteps(path)
	if len(steps) == 0 {
		return []any{root}
	}

	current := []any{root}
	for _, step := range steps {
		var next []any
		for _, node := range current {
			next = append(next, stepNodes(adapter, node, step)...)
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}

func stepNodes(adapter TreeAdapter, node any, step xpathStep) []any {
	if step.attribute {
		if _, ok := adapter.Attribute(node, step.name); ok {
			return []any{attributeStepResult{node: node, name: step.name}}
		}
		return nil
	}

	var candidates []any
	if step.descendant {
		collectDescendants(adapter, node, step.name, &candidates)
	} else {
		for _, child := range adapter.Children(node) {
			if step.name == "*" || adapter.LocalName(child) == step.name {
				candidates = append(candidates, child)
			}
		}
	}

	if step.position > 0 {
		if step.position > len(candidates) {
			return nil
		}
		return []any{candidates[step.position-1]}
	}
	return candidates
}

func collectDescendants(adapter TreeAdapter, node any, name string, out *[]any) {
	for _, child := range adapter.Children(node) {
		if name == "*" || adapter.LocalName(child) == name {
			*out = append(*out, child)
		}
		collectDescendants(adapter, child, name, out)
	}
}

// attributeStepResult is the synthetic node produced by an "@name" step;
// AttributeValue extracts its string value given the same adapter.
type attributeStepResult struct {
	node any
	name string
}

// AttributeValue reads the value held by a node EvaluateXPath produced
// for an "@name" step, or "" if node is not such a result.
func AttributeValue(adapter TreeAdapter, node any) string {
	r, ok := node.(attributeStepResult)
	if !ok {
		return ""
	}
	v, _ := adapter.Attribute(r.node, r.name)
	return v
}

// RelativePath drops the first stripDepth steps of path and re-renders
// the remainder with namespace prefixes stripped, mirroring how the
// decoder anchors a path-qualified identity-constraint field or a nested
// xs:any fragment onto a subtree rooted below the document root (§4.3).
// namespaces is accepted for symmetry with callers that resolve prefixes
// elsewhere; this engine only ever matches by local name, so it is
// otherwise unused here.
func RelativePath(path string, stripDepth int, namespaces map[string]string) string {
	_ = namespaces
	steps := parseXPathSteps(path)
	if stripDepth >= len(steps) {
		return "."
	}
	parts := make([]string, 0, len(steps)-stripDepth)
	for _, s := range steps[stripDepth:] {
		n := s.name
		if s.attribute {
			n = "@" + n
		}
		if s.position > 0 {
			n = n + "[" + strconv.Itoa(s.position) + "]"
		}
		parts = append(parts, n)
	}
	return strings.Join(parts, "/")
}

// xmlTreeAdapter is the TreeAdapter over XML instance documents
// (xmldom.Element), used by identity-constraint evaluation and decoding.
type xmlTreeAdapter struct{}

func (xmlTreeAdapter) Children(node any) []any {
	elem, ok := node.(xmldom.Element)
	if !ok {
		return nil
	}
	kids := elem.Children()
	out := make([]any, 0, kids.Length())
	for i := uint(0); i < kids.Length(); i++ {
		if c := kids.Item(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (xmlTreeAdapter) LocalName(node any) string {
	elem, ok := node.(xmldom.Element)
	if !ok {
		return ""
	}
	return string(elem.LocalName())
}

func (xmlTreeAdapter) NamespaceURI(node any) string {
	elem, ok := node.(xmldom.Element)
	if !ok {
		return ""
	}
	return string(elem.NamespaceURI())
}

func (xmlTreeAdapter) Attribute(node any, local string) (string, bool) {
	elem, ok := node.(xmldom.Element)
	if !ok {
		return "", false
	}
	v := elem.GetAttribute(xmldom.DOMString(local))
	if v == "" {
		return "", false
	}
	return string(v), true
}

// XMLAdapter is the shared TreeAdapter instance for XML instance trees.
var XMLAdapter TreeAdapter = xmlTreeAdapter{}

// EvaluateXMLPath is a typed convenience wrapper over EvaluateXPath for
// the common xmldom.Element case.
func EvaluateXMLPath(root xmldom.Element, path string) []xmldom.Element {
	nodes := EvaluateXPath(XMLAdapter, root, path)
	out := make([]xmldom.Element, 0, len(nodes))
	for _, n := range nodes {
		if elem, ok := n.(xmldom.Element); ok {
			out = append(out, elem)
		}
	}
	return out
}

// EvaluateXMLFieldPath resolves a field-style XPath (element path, "@attr",
// "." / "text()", or "element/@attr") against node to a single string
// value, the shape xs:field expressions take (§4.3, generalizing the
// host's per-kind evaluateFieldXPath into the shared engine).
func EvaluateXMLFieldPath(node xmldom.Element, path string) string {
	path = strings.TrimSpace(path)
	if path == "." || path == "text()" {
		return getElementTextContent(node)
	}
	if strings.HasPrefix(path, "@") {
		v, _ := XMLAdapter.Attribute(node, strings.TrimPrefix(path, "@"))
		return v
	}
	nodes := EvaluateXPath(XMLAdapter, node, path)
	if len(nodes) == 0 {
		return ""
	}
	if v := AttributeValue(XMLAdapter, nodes[0]); v != "" || strings.Contains(path, "/@") {
		return v
	}
	if elem, ok := nodes[0].(xmldom.Element); ok {
		return getElementTextContent(elem)
	}
	return ""
}
