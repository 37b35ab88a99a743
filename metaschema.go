package xsd

import "sync"

// XMLNamespace and XSINamespace are the two namespaces every schema
// document is implicitly aware of, whether or not it imports them: the
// xml: attributes (lang, base, space, id) and the xsi: attributes that
// steer instance validation itself (type, nil, schemaLocation,
// noNamespaceSchemaLocation) (§4.8 step 5, §9 "meta-schema bootstrap").
const (
	XMLNamespace = "http://www.w3.org/XML/1998/namespace"
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"
)

var (
	metaOnce     sync.Once
	metaRegistry *GlobalRegistry
)

// bootstrapMetaRegistry builds the frozen registry every fresh user
// schema document clones from (§4.8 step 5, §9 "Global mutable state").
//
// The host corpus has no bundled copy of the official W3C meta-schema
// (XMLSchema.xsd, the ~150KB document that describes XSD's own element
// vocabulary in XSD) to embed faithfully, and fabricating one from
// scratch would not be grounded in anything the corpus actually shows.
// What decode.go and validator.go actually consult from the xml/xsi
// namespaces is a fixed, small set of attribute declarations, not the
// full element vocabulary those namespaces also define (XSD itself is
// not instance data), so the bootstrap registers exactly that set
// directly, as a deliberate, documented narrowing of the general
// mechanism rather than a structural simplification of it.
func bootstrapMetaRegistry() *GlobalRegistry {
	metaOnce.Do(func() {
		r := NewGlobalRegistry()

		stringType := GetBuiltinTypeRef("string")
		booleanType := GetBuiltinTypeRef("boolean")
		qnameType := GetBuiltinTypeRef("QName")
		anyURIType := GetBuiltinTypeRef("anyURI")

		register := func(ns, local string, t Type, use AttributeUse) {
			qn := QName{Namespace: ns, Local: local}
			r.Attributes[qn] = &AttributeDecl{Name: qn, Type: t, Use: use}
		}

		register(XMLNamespace, "lang", stringType, OptionalUse)
		register(XMLNamespace, "base", anyURIType, OptionalUse)
		register(XMLNamespace, "space", stringType, OptionalUse)
		register(XMLNamespace, "id", stringType, OptionalUse)

		register(XSINamespace, "type", qnameType, OptionalUse)
		register(XSINamespace, "nil", booleanType, OptionalUse)
		register(XSINamespace, "schemaLocation", stringType, OptionalUse)
		register(XSINamespace, "noNamespaceSchemaLocation", anyURIType, OptionalUse)

		metaRegistry = r
	})
	return metaRegistry
}

// EnsureMetaRegistry runs the meta-schema bootstrap if it has not already
// run, and returns the frozen registry. Safe to call from multiple
// goroutines; the underlying sync.Once ensures the bootstrap itself runs
// exactly once per process (§5).
func EnsureMetaRegistry() *GlobalRegistry {
	return bootstrapMetaRegistry()
}

func init() {
	// Bootstrapping eagerly (rather than lazily on first NewSchemaDocument
	// call) keeps the happens-before relationship simple: by the time any
	// other package-level code runs, metaRegistry is already non-nil.
	bootstrapMetaRegistry()
}
