package xsd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
)

func TestOpenResourceLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.xsd")
	if err := os.WriteFile(path, []byte("<xs:schema xmlns:xs=\"http://www.w3.org/2001/XMLSchema\"/>"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	reader, canonical, err := OpenResource(path, "", nil)
	if err != nil {
		t.Fatalf("OpenResource failed: %v", err)
	}
	defer reader.Close()

	if canonical != path {
		t.Fatalf("expected canonical URI %q, got %q", path, canonical)
	}
}

func TestOpenResourceMissingFile(t *testing.T) {
	if _, _, err := OpenResource("/nonexistent/path/schema.xsd", "", nil); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoadXMLResourceParsesDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.xml")
	xml := `<?xml version="1.0"?><root><child>text</child></root>`
	if err := os.WriteFile(path, []byte(xml), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	doc, canonical, err := LoadXMLResource(path, "", nil)
	if err != nil {
		t.Fatalf("LoadXMLResource failed: %v", err)
	}
	if canonical != path {
		t.Fatalf("expected canonical URI %q, got %q", path, canonical)
	}
	if doc.DocumentElement() == nil || string(doc.DocumentElement().LocalName()) != "root" {
		t.Fatalf("expected parsed document root to be <root>")
	}
}

func TestLoadXMLResourceInvalidXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(path, []byte("<not-closed>"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if _, _, err := LoadXMLResource(path, "", nil); err == nil {
		t.Fatalf("expected a parse error for malformed XML")
	}
}

func TestResolveResourceLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		baseURI  string
		want     func(string) bool
	}{
		{
			name:     "absolute http URI passes through",
			location: "http://example.com/a.xsd",
			baseURI:  "",
			want:     func(got string) bool { return got == "http://example.com/a.xsd" },
		},
		{
			name:     "relative location against http base",
			location: "b.xsd",
			baseURI:  "http://example.com/schemas/a.xsd",
			want:     func(got string) bool { return got == "http://example.com/schemas/b.xsd" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveResourceLocation(tt.location, tt.baseURI)
			if !tt.want(got) {
				t.Fatalf("resolveResourceLocation(%q, %q) = %q, unexpected", tt.location, tt.baseURI, got)
			}
		})
	}
}

func TestResourceCacheEviction(t *testing.T) {
	c := NewResourceCache(2)
	doc1, err := xmldom.Decode(bytes.NewReader([]byte(`<a/>`)))
	if err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}
	doc2, err := xmldom.Decode(bytes.NewReader([]byte(`<b/>`)))
	if err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}
	doc3, err := xmldom.Decode(bytes.NewReader([]byte(`<c/>`)))
	if err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}

	c.Put("uri-a", doc1)
	c.Put("uri-b", doc2)
	c.Put("uri-c", doc3) // evicts uri-a (least recently used)

	if _, ok := c.Get("uri-a"); ok {
		t.Fatalf("expected uri-a to have been evicted")
	}
	if _, ok := c.Get("uri-b"); !ok {
		t.Fatalf("expected uri-b to still be cached")
	}
	if _, ok := c.Get("uri-c"); !ok {
		t.Fatalf("expected uri-c to be cached")
	}
}
