package xsd

import (
	"bytes"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
)

func parseIntoRegistry(t *testing.T, registry *GlobalRegistry, xsd string) *Schema {
	t.Helper()
	doc, err := xmldom.Decode(bytes.NewReader([]byte(xsd)))
	if err != nil {
		t.Fatalf("failed to parse schema fixture: %v", err)
	}
	schema, err := Parse(doc)
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}
	if err := registry.Register(schema); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return schema
}

// TestRunBuilderMergesDeclarationsAcrossSchemas exercises the Phase A/Phase B
// pipeline directly: two independently-compiled schema documents sharing one
// registry should, after Build, resolve a cross-document type reference that
// neither document's own single-pass compile step could see on its own.
func TestRunBuilderMergesDeclarationsAcrossSchemas(t *testing.T) {
	registry := NewGlobalRegistry()

	parseIntoRegistry(t, registry, `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:base">
  <xs:simpleType name="Id">
    <xs:restriction base="xs:string">
      <xs:minLength value="1"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`)

	parseIntoRegistry(t, registry, `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:base">
  <xs:element name="record" type="Id"/>
</xs:schema>`)

	if err := registry.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	recordQN := QName{Namespace: "urn:base", Local: "record"}
	decl, ok := registry.Elements[recordQN]
	if !ok {
		t.Fatalf("expected %v to be merged into registry.Elements", recordQN)
	}

	idQN := QName{Namespace: "urn:base", Local: "Id"}
	resolvedType, ok := registry.Types[idQN]
	if !ok {
		t.Fatalf("expected %v to be merged into registry.Types", idQN)
	}
	if decl.Type != resolvedType {
		t.Fatalf("expected cross-schema reference resolution to bind record's type to the shared Id declaration")
	}
}

// TestRunBuilderRejectsConflictingDuplicateDeclarations verifies that merging
// two distinct declarations under the same FQN within one namespace is
// treated as a build failure rather than silently keeping the first one.
func TestRunBuilderRejectsConflictingDuplicateDeclarations(t *testing.T) {
	registry := NewGlobalRegistry()

	parseIntoRegistry(t, registry, `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:dup">
  <xs:simpleType name="Code">
    <xs:restriction base="xs:string">
      <xs:minLength value="1"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`)

	parseIntoRegistry(t, registry, `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:dup">
  <xs:simpleType name="Code">
    <xs:restriction base="xs:string">
      <xs:minLength value="2"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`)

	if err := registry.Build(); err == nil {
		t.Fatalf("expected Build to fail on conflicting duplicate simpleType declarations for the same FQN")
	}
}

func TestRunBuilderFinalizesBaseElementsFromGroupParticles(t *testing.T) {
	registry := NewGlobalRegistry()

	parseIntoRegistry(t, registry, `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:group">
  <xs:group name="Items">
    <xs:sequence>
      <xs:element name="item" type="xs:string"/>
    </xs:sequence>
  </xs:group>
  <xs:element name="root">
    <xs:complexType>
      <xs:group ref="Items"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`)

	if err := registry.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	itemQN := QName{Namespace: "urn:group", Local: "item"}
	if _, ok := registry.BaseElements[itemQN]; !ok {
		t.Fatalf("expected group particle %v to be finalized into BaseElements", itemQN)
	}
}

func TestContainsQName(t *testing.T) {
	list := []QName{{Namespace: "urn:a", Local: "X"}, {Namespace: "urn:a", Local: "Y"}}
	if !containsQName(list, QName{Namespace: "urn:a", Local: "X"}) {
		t.Fatalf("expected containsQName to find an existing entry")
	}
	if containsQName(list, QName{Namespace: "urn:a", Local: "Z"}) {
		t.Fatalf("expected containsQName to report false for an absent entry")
	}
}
