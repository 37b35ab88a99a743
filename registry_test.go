package xsd

import "testing"

func TestGlobalRegistrySeedsBuiltins(t *testing.T) {
	r := NewGlobalRegistry()
	qn := QName{Namespace: XSDNamespace, Local: "string"}
	if _, ok := r.Types[qn]; !ok {
		t.Fatalf("expected builtin type %v to be seeded", qn)
	}
}

func TestGlobalRegistryRegisterIdempotent(t *testing.T) {
	r := NewGlobalRegistry()
	schema := &Schema{URI: "file:///a.xsd", TargetNamespace: "urn:a"}

	if err := r.Register(schema); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(schema); err != nil {
		t.Fatalf("identity-equal re-registration should be a no-op, got: %v", err)
	}

	other := &Schema{URI: "file:///a.xsd", TargetNamespace: "urn:a"}
	if err := r.Register(other); err == nil {
		t.Fatalf("expected conflicting registration under the same URI to fail")
	}
}

func TestGlobalRegistryClear(t *testing.T) {
	r := NewGlobalRegistry()
	schema := &Schema{URI: "file:///a.xsd", TargetNamespace: "urn:a", Built: true}
	if err := r.Register(schema); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	r.Types[QName{Namespace: "urn:a", Local: "Foo"}] = &SimpleType{QName: QName{Namespace: "urn:a", Local: "Foo"}}

	r.Clear(false)

	if _, ok := r.Types[QName{Namespace: "urn:a", Local: "Foo"}]; ok {
		t.Fatalf("expected user-defined type to be removed by Clear")
	}
	if _, ok := r.Types[QName{Namespace: XSDNamespace, Local: "string"}]; !ok {
		t.Fatalf("expected builtins to be re-seeded by Clear")
	}
	if schema.Built {
		t.Fatalf("expected Clear to mark registered schemas Built=false")
	}
	if _, ok := r.byURI[schema.URI]; !ok {
		t.Fatalf("expected Clear(false) to keep the schema index")
	}

	r.Clear(true)
	if _, ok := r.byURI[schema.URI]; ok {
		t.Fatalf("expected Clear(true) to drop the schema index")
	}
}

func TestGlobalRegistryCopyIsIndependent(t *testing.T) {
	r := NewGlobalRegistry()
	qn := QName{Namespace: "urn:a", Local: "Foo"}
	r.Types[qn] = &SimpleType{QName: qn}

	cp := r.Copy()
	cp.Types[QName{Namespace: "urn:a", Local: "Bar"}] = &SimpleType{QName: QName{Namespace: "urn:a", Local: "Bar"}}

	if _, ok := r.Types[QName{Namespace: "urn:a", Local: "Bar"}]; ok {
		t.Fatalf("mutating the copy must not affect the original registry")
	}
	if _, ok := cp.Types[qn]; !ok {
		t.Fatalf("expected the copy to share pre-existing compiled declarations")
	}
}

func TestGlobalRegistryGetGlobalsProjection(t *testing.T) {
	r := NewGlobalRegistry()
	qn := QName{Namespace: "urn:a", Local: "Foo"}
	r.Types[qn] = &SimpleType{QName: qn}

	byFQN, err := r.GetGlobals("types", "urn:a", true)
	if err != nil {
		t.Fatalf("GetGlobals failed: %v", err)
	}
	if _, ok := byFQN[qn.String()]; !ok {
		t.Fatalf("expected projection keyed by FQN to contain %v", qn)
	}

	byLocal, err := r.GetGlobals("types", "urn:a", false)
	if err != nil {
		t.Fatalf("GetGlobals failed: %v", err)
	}
	if _, ok := byLocal["Foo"]; !ok {
		t.Fatalf("expected projection keyed by local name to contain Foo")
	}

	if _, err := r.GetGlobals("bogus", "urn:a", true); err == nil {
		t.Fatalf("expected an unknown map name to fail")
	}
}
