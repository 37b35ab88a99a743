package xsd

import "testing"

func TestEnsureMetaRegistrySeedsXMLAndXSIAttributes(t *testing.T) {
	r := EnsureMetaRegistry()
	if r == nil {
		t.Fatalf("expected a non-nil meta registry")
	}

	for _, qn := range []QName{
		{Namespace: XMLNamespace, Local: "lang"},
		{Namespace: XMLNamespace, Local: "id"},
		{Namespace: XSINamespace, Local: "type"},
		{Namespace: XSINamespace, Local: "nil"},
	} {
		if _, ok := r.Attributes[qn]; !ok {
			t.Fatalf("expected meta registry to declare attribute %v", qn)
		}
	}
}

func TestEnsureMetaRegistryIsSingleton(t *testing.T) {
	a := EnsureMetaRegistry()
	b := EnsureMetaRegistry()
	if a != b {
		t.Fatalf("expected EnsureMetaRegistry to return the same frozen registry across calls")
	}
}

func TestMetaRegistryCopyIsIndependent(t *testing.T) {
	base := EnsureMetaRegistry()
	cp := base.Copy()

	qn := QName{Namespace: "urn:fresh", Local: "Widget"}
	cp.Types[qn] = &SimpleType{QName: qn}

	if _, ok := base.Types[qn]; ok {
		t.Fatalf("mutating a clone of the meta registry must not affect the frozen original")
	}
	if _, ok := cp.Attributes[QName{Namespace: XSINamespace, Local: "type"}]; !ok {
		t.Fatalf("expected the clone to still carry the xsi:type declaration")
	}
}
