package xsd

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// projectionKey is the cache key for a per-namespace projection of one of
// the five global maps (§4.6 "memoized cache of per-(map, namespace,
// key-style) projections").
type projectionKey struct {
	mapName   string
	namespace string
	fqnKeys   bool
}

// GlobalRegistry mediates between every schema document sharing a compile
// session. It holds the five FQN-keyed global maps plus the derived
// base_elements map, and the URI/namespace indexes used to detect
// already-registered resources during include/import/redefine recursion.
//
// A GlobalRegistry is not safe for concurrent mutation; concurrent readers
// are safe once Build has completed (§5).
type GlobalRegistry struct {
	mu sync.RWMutex

	byNamespace map[string][]*Schema // namespace -> schema documents contributing to it, registration order
	byURI       map[string]*Schema   // canonical URI -> schema document

	Types           map[QName]Type
	Attributes      map[QName]*AttributeDecl
	AttributeGroups map[QName]*AttributeGroup
	Groups          map[QName]*ModelGroup
	Elements        map[QName]*ElementDecl
	BaseElements    map[QName]*ElementDecl

	// SubstitutionGroups maps a head element FQN to every element FQN
	// that may substitute for it, merged from every contributing schema.
	// Not one of the five official global maps (§3), but it is global
	// state shared the same way: a member declared in one schema document
	// can substitute for a head declared in another.
	SubstitutionGroups map[QName][]QName

	projections map[projectionKey]any
}

// NewGlobalRegistry creates a registry seeded with the builtin type
// catalog, per §4.5 ("Seeds the registry's types map before any user
// schema is loaded").
func NewGlobalRegistry() *GlobalRegistry {
	r := &GlobalRegistry{
		byNamespace:     make(map[string][]*Schema),
		byURI:           make(map[string]*Schema),
		Types:           make(map[QName]Type),
		Attributes:      make(map[QName]*AttributeDecl),
		AttributeGroups: make(map[QName]*AttributeGroup),
		Groups:          make(map[QName]*ModelGroup),
		Elements:           make(map[QName]*ElementDecl),
		BaseElements:       make(map[QName]*ElementDecl),
		SubstitutionGroups: make(map[QName][]QName),
		projections:        make(map[projectionKey]any),
	}
	r.seedBuiltins()
	return r
}

func (r *GlobalRegistry) seedBuiltins() {
	for _, name := range AllBuiltinNames() {
		qn := QName{Namespace: XSDNamespace, Local: name}
		r.Types[qn] = GetBuiltinTypeRef(name)
	}
}

// Register records schema under both its canonical URI and its target
// namespace. Idempotent on (URI, object identity); a conflicting
// registration of a *different* schema object under the same URI is a
// ParseError (the conservative resolution of the specification's Open
// Question: no silent drop-and-keep-first).
func (r *GlobalRegistry) Register(schema *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema.URI != "" {
		if existing, ok := r.byURI[schema.URI]; ok {
			if existing == schema {
				return nil // identity-equal re-registration: no-op
			}
			return wrapParse(schema.URI, "conflicting schema already registered at this URI", nil)
		}
		r.byURI[schema.URI] = schema
	}

	for _, existing := range r.byNamespace[schema.TargetNamespace] {
		if existing == schema {
			return nil
		}
	}
	r.byNamespace[schema.TargetNamespace] = append(r.byNamespace[schema.TargetNamespace], schema)
	schema.registry = r
	slog.Debug("registered schema", slog.String("namespace", schema.TargetNamespace), slog.String("uri", schema.URI))
	return nil
}

// IterSchemas yields every registered schema, grouped by namespace, in a
// deterministic (sorted-namespace) order.
func (r *GlobalRegistry) IterSchemas() []*Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	namespaces := make([]string, 0, len(r.byNamespace))
	for ns := range r.byNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var out []*Schema
	for _, ns := range namespaces {
		out = append(out, r.byNamespace[ns]...)
	}
	return out
}

// Clear empties the five global maps and invalidates the projection cache,
// re-seeding the builtin catalog, and marks every registered schema
// built=false. When removeSchemas is true the URI/namespace indexes are
// also emptied (§4.6).
func (r *GlobalRegistry) Clear(removeSchemas bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Types = make(map[QName]Type)
	r.Attributes = make(map[QName]*AttributeDecl)
	r.AttributeGroups = make(map[QName]*AttributeGroup)
	r.Groups = make(map[QName]*ModelGroup)
	r.Elements = make(map[QName]*ElementDecl)
	r.BaseElements = make(map[QName]*ElementDecl)
	r.SubstitutionGroups = make(map[QName][]QName)
	r.projections = make(map[projectionKey]any)
	r.seedBuiltins()

	for _, schemas := range r.byNamespace {
		for _, s := range schemas {
			s.Built = false
		}
	}

	if removeSchemas {
		r.byNamespace = make(map[string][]*Schema)
		r.byURI = make(map[string]*Schema)
	}
}

// Copy returns a shallow duplicate of the registry: compiled declarations
// are shared (same pointers), but the maps and projection cache are
// independent, so mutating the copy (via a further Build after more
// schemas are registered) never mutates the original. This is how a new
// schema document starts from a clone of the frozen meta-schema registry
// (§4.8 step 5, §9 "Global mutable state").
func (r *GlobalRegistry) Copy() *GlobalRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := &GlobalRegistry{
		byNamespace:     make(map[string][]*Schema, len(r.byNamespace)),
		byURI:           make(map[string]*Schema, len(r.byURI)),
		Types:           make(map[QName]Type, len(r.Types)),
		Attributes:      make(map[QName]*AttributeDecl, len(r.Attributes)),
		AttributeGroups: make(map[QName]*AttributeGroup, len(r.AttributeGroups)),
		Groups:          make(map[QName]*ModelGroup, len(r.Groups)),
		Elements:           make(map[QName]*ElementDecl, len(r.Elements)),
		BaseElements:       make(map[QName]*ElementDecl, len(r.BaseElements)),
		SubstitutionGroups: make(map[QName][]QName, len(r.SubstitutionGroups)),
		projections:        make(map[projectionKey]any),
	}
	for k, v := range r.byNamespace {
		cp.byNamespace[k] = append([]*Schema(nil), v...)
	}
	for k, v := range r.byURI {
		cp.byURI[k] = v
	}
	for k, v := range r.Types {
		cp.Types[k] = v
	}
	for k, v := range r.Attributes {
		cp.Attributes[k] = v
	}
	for k, v := range r.AttributeGroups {
		cp.AttributeGroups[k] = v
	}
	for k, v := range r.Groups {
		cp.Groups[k] = v
	}
	for k, v := range r.Elements {
		cp.Elements[k] = v
	}
	for k, v := range r.BaseElements {
		cp.BaseElements[k] = v
	}
	for k, v := range r.SubstitutionGroups {
		cp.SubstitutionGroups[k] = append([]QName(nil), v...)
	}
	return cp
}

// GetGlobals returns a cached, namespace-filtered projection of one of the
// five global maps. mapName is one of "types", "attributes",
// "attribute_groups", "groups", "elements". When fqnKeys is false the
// returned map is keyed by bare local name instead of full QName.
func (r *GlobalRegistry) GetGlobals(mapName, namespace string, fqnKeys bool) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := projectionKey{mapName, namespace, fqnKeys}
	if cached, ok := r.projections[key]; ok {
		return cached.(map[string]any), nil
	}

	var source map[QName]any
	switch mapName {
	case "types":
		source = typedMapToAny(r.Types)
	case "attributes":
		source = typedMapToAny(r.Attributes)
	case "attribute_groups":
		source = typedMapToAny(r.AttributeGroups)
	case "groups":
		source = typedMapToAny(r.Groups)
	case "elements":
		source = typedMapToAny(r.Elements)
	default:
		return nil, &TypeError{Detail: fmt.Sprintf("unknown global map %q", mapName)}
	}

	projection := make(map[string]any)
	for qn, v := range source {
		if qn.Namespace != namespace {
			continue
		}
		if fqnKeys {
			projection[qn.String()] = v
		} else {
			projection[qn.Local] = v
		}
	}
	r.projections[key] = projection
	return projection, nil
}

func typedMapToAny[V any](m map[QName]V) map[QName]any {
	out := make(map[QName]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *GlobalRegistry) invalidateProjections() {
	r.projections = make(map[projectionKey]any)
}

// Build runs the two-phase builder pipeline (§4.7) over every currently
// registered schema document.
func (r *GlobalRegistry) Build() error {
	return runBuilder(r)
}
