package xsd

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/agentflare-ai/go-xmldom"
)

// SchemaCache manages cached XSD schemas, loading each entry once through a sync.Once
type SchemaCache struct {
	mu             sync.RWMutex
	schemas        map[string]*schemaEntry
	BasePath       string // Base path for resolving relative schema locations
	sharedRegistry *GlobalRegistry
}

// schemaEntry holds a schema and its loader
type schemaEntry struct {
	loader func() (*Schema, error)
	once   sync.Once
	schema *Schema
	err    error
}

// GlobalCache is the singleton schema cache
var GlobalCache = NewSchemaCache("")

// NewSchemaCache creates a new schema cache
func NewSchemaCache(basePath string) *SchemaCache {
	return &SchemaCache{
		schemas:  make(map[string]*schemaEntry),
		BasePath: basePath,
	}
}

// SetBasePath sets the base path for resolving relative schema locations
func (sc *SchemaCache) SetBasePath(path string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.BasePath = path
}

// Get retrieves a schema from cache or loads it if not present
func (sc *SchemaCache) Get(location string) (*Schema, error) {
	// Resolve path
	resolvedPath := sc.resolvePath(location)

	// Check cache
	sc.mu.RLock()
	entry, exists := sc.schemas[resolvedPath]
	sc.mu.RUnlock()

	if exists {
		// Use sync.Once to ensure single loading
		entry.once.Do(func() {
			if entry.loader != nil {
				entry.schema, entry.err = entry.loader()
			}
		})
		return entry.schema, entry.err
	}

	// Create new entry with loader
	entry = &schemaEntry{
		loader: func() (*Schema, error) {
			return sc.loadSchema(resolvedPath)
		},
	}

	// Store in cache
	sc.mu.Lock()
	sc.schemas[resolvedPath] = entry
	sc.mu.Unlock()

	// Load and return
	entry.once.Do(func() {
		entry.schema, entry.err = entry.loader()
	})
	return entry.schema, entry.err
}

// GetOrLoad gets a schema from cache or loads from provided document
func (sc *SchemaCache) GetOrLoad(location string, doc xmldom.Document) (*Schema, error) {
	// Try to get from cache first
	if schema, err := sc.Get(location); err == nil {
		return schema, nil
	}

	// Parse from provided document
	schema, err := Parse(doc)
	if err != nil {
		return nil, err
	}

	// Cache it
	sc.mu.Lock()
	sc.schemas[location] = &schemaEntry{
		schema: schema,
		err:    nil,
	}
	sc.mu.Unlock()

	return schema, nil
}

// Clear removes all cached schemas
func (sc *SchemaCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.schemas = make(map[string]*schemaEntry)
}

// Remove removes a specific schema from cache
func (sc *SchemaCache) Remove(location string) {
	resolvedPath := sc.resolvePath(location)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.schemas, resolvedPath)
}

// resolvePath resolves a schema location to an absolute path
func (sc *SchemaCache) resolvePath(location string) string {
	if filepath.IsAbs(location) {
		return location
	}
	if sc.BasePath != "" {
		return filepath.Join(sc.BasePath, location)
	}
	// Try to resolve relative to current directory
	abs, err := filepath.Abs(location)
	if err != nil {
		return location
	}
	return abs
}

// loadSchema loads and fully compiles a schema document from disk or HTTP,
// following its own xs:include/xs:import/xs:redefine graph via
// NewSchemaDocument (document.go) rather than the ad hoc single-level
// Imports walk this method used before document.go existed.
func (sc *SchemaCache) loadSchema(location string) (*Schema, error) {
	schema, err := NewSchemaDocument(location, nil, DocumentOptions{Registry: sc.registry()})
	if err != nil {
		return nil, fmt.Errorf("failed to load XSD schema %s: %w", location, err)
	}
	return schema, nil
}

// registry returns the GlobalRegistry every schema this cache loads
// registers into, creating it (cloned from the frozen meta-schema
// registry) on first use. A single cache shares one registry across
// every Get call so cross-document type references resolve (§4.6).
func (sc *SchemaCache) registry() *GlobalRegistry {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.sharedRegistry == nil {
		sc.sharedRegistry = EnsureMetaRegistry().Copy()
	}
	return sc.sharedRegistry
}

// Build runs the two-phase builder over every schema this cache has
// loaded so far. Call once after the last Get in a batch of related
// schema loads; repeated calls are safe (Build is idempotent per §4.7).
func (sc *SchemaCache) Build() error {
	return sc.registry().Build()
}


// SchemaRegistry manages multiple schemas for different namespaces
type SchemaRegistry struct {
	mu            sync.RWMutex
	namespaces    map[string]*Schema
	defaultSchema *Schema
	cache         *SchemaCache
}

// NewSchemaRegistry creates a new schema registry
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		namespaces: make(map[string]*Schema),
		cache:      NewSchemaCache(""),
	}
}

// Register registers a schema for a namespace
func (sr *SchemaRegistry) Register(namespace string, schema *Schema) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.namespaces[namespace] = schema
}

// RegisterFile registers a schema from a file
func (sr *SchemaRegistry) RegisterFile(namespace, location string) error {
	schema, err := sr.cache.Get(location)
	if err != nil {
		return err
	}
	sr.Register(namespace, schema)
	return nil
}

// SetDefault sets the default schema for elements without namespaces
func (sr *SchemaRegistry) SetDefault(schema *Schema) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.defaultSchema = schema
}

// GetForNamespace retrieves the schema for a namespace
func (sr *SchemaRegistry) GetForNamespace(namespace string) (*Schema, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	if namespace == "" && sr.defaultSchema != nil {
		return sr.defaultSchema, true
	}

	schema, ok := sr.namespaces[namespace]
	return schema, ok
}

// Validate validates a document using multiple namespace schemas
func (sr *SchemaRegistry) Validate(doc xmldom.Document) []Violation {
	violations := []Violation{}

	// Get root element namespace
	root := doc.DocumentElement()
	if root == nil {
		return []Violation{{
			Code:    "xsd-no-root",
			Message: "Document has no root element",
		}}
	}

	rootNS := string(root.NamespaceURI())

	// Get appropriate schema
	schema, ok := sr.GetForNamespace(rootNS)
	if !ok && sr.defaultSchema != nil {
		schema = sr.defaultSchema
	}

	if schema == nil {
		return []Violation{{
			Code:    "xsd-no-schema",
			Message: fmt.Sprintf("No schema found for namespace '%s'", rootNS),
		}}
	}

	// Validate with primary schema
	validator := NewValidator(schema)
	violations = append(violations, validator.Validate(doc)...)

	// Handle mixed namespace validation
	// Validate elements from imported namespaces against their respective schemas
	if len(schema.ImportedSchemas) > 0 {
		violations = append(violations, sr.validateImportedNamespaces(doc, schema)...)
	}

	return violations
}

// validateImportedNamespaces validates elements from imported namespaces
func (sr *SchemaRegistry) validateImportedNamespaces(doc xmldom.Document, primarySchema *Schema) []Violation {
	violations := []Violation{}

	// Build namespace to schema mapping
	nsMap := make(map[string]*Schema)
	for _, importedSchema := range primarySchema.ImportedSchemas {
		if importedSchema.TargetNamespace != "" {
			nsMap[importedSchema.TargetNamespace] = importedSchema
		}
	}

	// Recursively validate elements against their namespace schemas
	root := doc.DocumentElement()
	if root != nil {
		violations = append(violations, sr.validateElementNamespace(root, nsMap, primarySchema)...)
	}

	return violations
}

// validateElementNamespace validates an element against the schema for its namespace
func (sr *SchemaRegistry) validateElementNamespace(elem xmldom.Element, nsMap map[string]*Schema, primarySchema *Schema) []Violation {
	violations := []Violation{}

	elemNS := string(elem.NamespaceURI())

	// If element is from an imported namespace, validate against that schema
	if elemNS != "" && elemNS != primarySchema.TargetNamespace {
		if importedSchema, exists := nsMap[elemNS]; exists {
			// Validate this element against the imported schema
			// Note: We don't need the validator variable here, just validate the type directly
			qname := QName{Namespace: elemNS, Local: string(elem.LocalName())}
			if decl, found := importedSchema.ElementDecls[qname]; found {
				if decl.Type != nil {
					violations = append(violations, decl.Type.Validate(elem, importedSchema)...)
				}
			}
		}
	}

	// Recursively validate children
	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		if child := children.Item(i); child != nil {
			violations = append(violations, sr.validateElementNamespace(child, nsMap, primarySchema)...)
		}
	}

	return violations
}
