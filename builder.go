package xsd

import (
	"log/slog"
)

// runBuilder implements the two-phase build pipeline (§4.7) over a
// registry's currently-registered schema documents.
//
// Each Schema document has already produced fully-compiled declarations
// for its own top-level (and, eagerly, local) components during Parse
// (schema.go) — the host's single-pass design resolves local particles as
// it parses rather than deferring them to a second pass over raw XSD
// elements. Phase A here therefore plays the role of "load the category,
// then build it" by merging each schema's already-built declarations into
// the registry's FQN-keyed maps in the fixed category order and rejecting
// FQN collisions across schemas within a namespace; Phase B plays its role
// by re-running the cross-document reference resolver (the same resolver
// schema.go runs per-document) against the registry's merged maps, so a
// reference that crossed a schema-document boundary during include/import
// gets the same on-demand, cycle-safe resolution a same-document reference
// already received.
func runBuilder(r *GlobalRegistry) error {
	schemas := r.IterSchemas()

	if err := mergeCategory(r, schemas, "simple-types", func(s *Schema) map[QName]Type {
		out := make(map[QName]Type)
		for qn, t := range s.TypeDefs {
			if _, ok := t.(*ComplexType); !ok {
				out[qn] = t
			}
		}
		return out
	}, r.Types); err != nil {
		return err
	}

	if err := mergeAttributeDecls(r, schemas); err != nil {
		return err
	}

	if err := mergeCategory(r, schemas, "attribute-groups", func(s *Schema) map[QName]*AttributeGroup {
		return s.AttributeGroups
	}, r.AttributeGroups); err != nil {
		return err
	}

	if err := mergeCategory(r, schemas, "complex-types", func(s *Schema) map[QName]Type {
		out := make(map[QName]Type)
		for qn, t := range s.TypeDefs {
			if _, ok := t.(*ComplexType); ok {
				out[qn] = t
			}
		}
		return out
	}, r.Types); err != nil {
		return err
	}

	if err := mergeCategory(r, schemas, "elements", func(s *Schema) map[QName]*ElementDecl {
		return s.ElementDecls
	}, r.Elements); err != nil {
		return err
	}

	if err := mergeCategory(r, schemas, "model-groups", func(s *Schema) map[QName]*ModelGroup {
		return s.Groups
	}, r.Groups); err != nil {
		return err
	}

	for _, s := range schemas {
		for head, members := range s.SubstitutionGroups {
			existing := r.SubstitutionGroups[head]
			for _, m := range members {
				if !containsQName(existing, m) {
					existing = append(existing, m)
				}
			}
			r.SubstitutionGroups[head] = existing
		}
	}

	// Phase B: cross-schema reference resolution, reusing the per-document
	// resolver against a virtual schema whose maps ARE the registry's maps
	// (so the resolver mutates the registry directly — no copy-back step).
	merged := &Schema{
		TypeDefs:           r.Types,
		ElementDecls:       r.Elements,
		AttributeGroups:    r.AttributeGroups,
		Groups:             r.Groups,
		SubstitutionGroups: r.SubstitutionGroups,
		ImportedSchemas:    map[string]*Schema{},
	}
	merged.resolveReferencesCrossSchema()

	finalizeBaseElements(r)

	for _, s := range schemas {
		s.Built = true
	}
	r.invalidateProjections()

	slog.Debug("build complete",
		slog.Int("schemas", len(schemas)),
		slog.Int("types", len(r.Types)),
		slog.Int("elements", len(r.Elements)))
	return nil
}

func containsQName(list []QName, q QName) bool {
	for _, existing := range list {
		if existing == q {
			return true
		}
	}
	return false
}

// mergeCategory merges one declaration category from every schema into the
// registry's corresponding map, in registration order, failing with
// ParseError on a cross-schema FQN collision within the same namespace
// (§4.7 "collisions across schemas within the same namespace fail").
func mergeCategory[V any](r *GlobalRegistry, schemas []*Schema, category string, extract func(*Schema) map[QName]V, target map[QName]V) error {
	for _, s := range schemas {
		for qn, v := range extract(s) {
			if existing, ok := target[qn]; ok {
				if !sameDecl(existing, v) {
					return wrapParse(s.URI, "duplicate "+category+" declaration for "+qn.String(), nil)
				}
				continue
			}
			target[qn] = v
		}
	}
	return nil
}

// sameDecl reports whether two declaration values are the same underlying
// object, so re-merging a schema already merged (e.g. shared via multiple
// include paths) is not treated as a collision.
// sameDecl compares two declaration values by identity. V is always a
// pointer type or an interface wrapping one, so comparison via the empty
// interface never panics (no maps/slices/funcs are ever stored as V).
func sameDecl[V any](a, b V) bool {
	return any(a) == any(b)
}

func mergeAttributeDecls(r *GlobalRegistry, schemas []*Schema) error {
	for _, s := range schemas {
		for qn, attr := range s.Attributes {
			if existing, ok := r.Attributes[qn]; ok {
				if existing != attr {
					return wrapParse(s.URI, "duplicate attribute declaration for "+qn.String(), nil)
				}
				continue
			}
			r.Attributes[qn] = attr
		}
	}
	return nil
}

// finalizeBaseElements populates BaseElements from Elements plus every
// element particle reachable by expanding the top-level model groups one
// level (§4.7 Finalization).
func finalizeBaseElements(r *GlobalRegistry) {
	for qn, decl := range r.Elements {
		r.BaseElements[qn] = decl
	}
	for _, group := range r.Groups {
		for _, particle := range group.Particles {
			switch p := particle.(type) {
			case *ElementDecl:
				r.BaseElements[p.Name] = p
			case *ElementRef:
				if decl, ok := r.Elements[p.Ref]; ok {
					r.BaseElements[p.Ref] = decl
				}
			}
		}
	}
}

// resolveReferencesCrossSchema mirrors Schema.resolveReferences but omits
// buildSubstitutionGroups: substitution groups are merged by the caller
// from each document's already-namespace-qualified map, since a merged
// virtual schema has no single TargetNamespace to resolve an unqualified
// substitutionGroup attribute against.
func (s *Schema) resolveReferencesCrossSchema() {
	for _, decl := range s.ElementDecls {
		if decl.Type == nil {
			continue
		}
		if st, ok := decl.Type.(*SimpleType); ok && st.Restriction == nil && st.List == nil && st.Union == nil {
			if actualType, exists := s.TypeDefs[st.QName]; exists {
				decl.Type = actualType
			}
		}
	}

	for _, typeDef := range s.TypeDefs {
		ct, ok := typeDef.(*ComplexType)
		if !ok {
			continue
		}
		if gr, ok := ct.Content.(*GroupRef); ok {
			if group, exists := s.Groups[gr.Ref]; exists {
				resolvedGroup := &ModelGroup{
					Kind:      group.Kind,
					Particles: s.resolveParticles(group.Particles),
					MinOcc:    gr.MinOcc,
					MaxOcc:    gr.MaxOcc,
				}
				if gr.MinOcc == 0 && gr.MaxOcc == 0 {
					resolvedGroup.MinOcc = group.MinOcc
					resolvedGroup.MaxOcc = group.MaxOcc
				}
				ct.Content = resolvedGroup
			}
		}
		if mg, ok := ct.Content.(*ModelGroup); ok {
			mg.Particles = s.resolveParticles(mg.Particles)
			s.resolveInlineElementTypes(mg.Particles)
		}
		if sc, ok := ct.Content.(*SimpleContent); ok && sc.Extension != nil {
			s.resolveExtension(ct, sc.Extension)
		}
		if cc, ok := ct.Content.(*ComplexContent); ok && cc.Extension != nil {
			s.resolveExtension(ct, cc.Extension)
		}
		for _, attr := range ct.Attributes {
			resolveAttrPlaceholder(s, attr)
		}
	}

	for _, elemDecl := range s.ElementDecls {
		if ct, ok := elemDecl.Type.(*ComplexType); ok {
			s.resolveTypesInComplexType(ct)
		}
	}

	for _, group := range s.Groups {
		group.Particles = s.resolveParticles(group.Particles)
	}

	for _, attrGroup := range s.AttributeGroups {
		for _, attr := range attrGroup.Attributes {
			resolveAttrPlaceholder(s, attr)
		}
	}
}

func resolveAttrPlaceholder(s *Schema, attr *AttributeDecl) {
	if attr.Type == nil {
		return
	}
	if st, ok := attr.Type.(*SimpleType); ok && st.Restriction == nil && st.List == nil && st.Union == nil {
		if actualType, exists := s.TypeDefs[st.QName]; exists {
			attr.Type = actualType
		}
	}
}
