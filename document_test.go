package xsd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}

func TestNewSchemaDocumentChameleonInclude(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "common.xsd", `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:simpleType name="Code">
    <xs:restriction base="xs:string">
      <xs:minLength value="1"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`)

	mainPath := writeFixture(t, dir, "main.xsd", `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:main" xmlns:m="urn:main">
  <xs:include schemaLocation="common.xsd"/>
  <xs:element name="widget" type="m:Code"/>
</xs:schema>`)

	schema, err := NewSchemaDocument(mainPath, nil, DocumentOptions{})
	if err != nil {
		t.Fatalf("NewSchemaDocument failed: %v", err)
	}

	if schema.TargetNamespace != "urn:main" {
		t.Fatalf("expected main document's target namespace, got %q", schema.TargetNamespace)
	}

	decl, ok := schema.Find("/widget", nil)
	if !ok {
		t.Fatalf("expected /widget to resolve")
	}
	codeQN := QName{Namespace: "urn:main", Local: "Code"}
	if _, ok := schema.registry.Types[codeQN]; !ok {
		t.Fatalf("expected chameleon-included type to be rekeyed into urn:main, registry has: %+v", schema.registry.Types)
	}
	_ = decl
}

func TestNewSchemaDocumentImportAcrossNamespaces(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "shapes.xsd", `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:shapes">
  <xs:element name="circle" type="xs:string"/>
</xs:schema>`)

	mainPath := writeFixture(t, dir, "main.xsd", `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:main"
           xmlns:sh="urn:shapes">
  <xs:import namespace="urn:shapes" schemaLocation="shapes.xsd"/>
  <xs:element name="drawing">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="sh:circle"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`)

	schema, err := NewSchemaDocument(mainPath, nil, DocumentOptions{})
	if err != nil {
		t.Fatalf("NewSchemaDocument failed: %v", err)
	}

	circleQN := QName{Namespace: "urn:shapes", Local: "circle"}
	if _, ok := schema.registry.Elements[circleQN]; !ok {
		t.Fatalf("expected imported element %v to be registered globally", circleQN)
	}
}

func TestNewSchemaDocumentDetectsCircularInclude(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "a.xsd", `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:include schemaLocation="b.xsd"/>
  <xs:element name="a" type="xs:string"/>
</xs:schema>`)
	writeFixture(t, dir, "b.xsd", `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:include schemaLocation="a.xsd"/>
  <xs:element name="b" type="xs:string"/>
</xs:schema>`)

	mainPath := writeFixture(t, dir, "main.xsd", `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:include schemaLocation="a.xsd"/>
  <xs:element name="root" type="xs:string"/>
</xs:schema>`)

	// a.xsd includes b.xsd, which includes a.xsd again before a.xsd has
	// finished registering (it is still in the "visiting" set), so this
	// must surface as a circular schema include error rather than loop.
	if _, err := NewSchemaDocument(mainPath, nil, DocumentOptions{}); err == nil {
		t.Fatalf("expected a circular include (a -> b -> a) to be rejected")
	}
}

func TestNewSchemaDocumentInlineDoc(t *testing.T) {
	xml := `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:inline">
  <xs:element name="thing" type="xs:string"/>
</xs:schema>`
	doc, err := xmldom.Decode(bytes.NewReader([]byte(xml)))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	schema, err := NewSchemaDocument("inline://thing", doc, DocumentOptions{})
	if err != nil {
		t.Fatalf("NewSchemaDocument with an in-memory document failed: %v", err)
	}
	if schema.TargetNamespace != "urn:inline" {
		t.Fatalf("expected target namespace urn:inline, got %q", schema.TargetNamespace)
	}
}
