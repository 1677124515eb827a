package diagnosis

import "fmt"

// FallbackSuggestions is returned for every category without a table entry.
func FallbackSuggestions() SuggestionBundle {
	return SuggestionBundle{
		Temporary: []string{"Consult a professional mechanic"},
		Permanent: []string{"Complete diagnostic by certified technician"},
	}
}

// SuggestionTable is an immutable category -> bundle lookup built once at startup.
type SuggestionTable struct {
	entries map[Category]SuggestionBundle
}

// NewSuggestionTable validates and copies the entries. Every known category must be
// present with non-empty temporary and permanent lists; unknown keys are rejected.
func NewSuggestionTable(entries map[Category]SuggestionBundle) (*SuggestionTable, error) {
	known := make(map[Category]bool, len(KnownCategories))
	for _, c := range KnownCategories {
		known[c] = true
	}
	t := &SuggestionTable{entries: make(map[Category]SuggestionBundle, len(entries))}
	for c, b := range entries {
		if !known[c] {
			return nil, fmt.Errorf("suggestions: unexpected category %q", c)
		}
		if len(b.Temporary) == 0 || len(b.Permanent) == 0 {
			return nil, fmt.Errorf("suggestions: category %q needs temporary and permanent entries", c)
		}
		t.entries[c] = b.clone()
	}
	for _, c := range KnownCategories {
		if _, ok := t.entries[c]; !ok {
			return nil, fmt.Errorf("suggestions: missing category %q", c)
		}
	}
	return t, nil
}

// Resolve never returns an empty bundle. The caller owns the returned slices.
func (t *SuggestionTable) Resolve(c Category) SuggestionBundle {
	if t != nil {
		if b, ok := t.entries[c]; ok {
			return b.clone()
		}
	}
	return FallbackSuggestions()
}

// DefaultSuggestions is the built-in repair table.
func DefaultSuggestions() map[Category]SuggestionBundle {
	return map[Category]SuggestionBundle{
		CategoryEngineKnock: {
			Temporary: []string{
				"Use higher octane fuel",
				"Check and replace spark plugs",
				"Ensure proper engine oil level",
			},
			Permanent: []string{
				"Engine timing adjustment",
				"Carbon cleaning service",
				"Replace worn engine components",
				"Professional engine diagnostic",
			},
		},
		CategoryBrakeSqueal: {
			Temporary: []string{
				"Clean brake rotors and pads",
				"Check brake fluid level",
				"Avoid hard braking when possible",
			},
			Permanent: []string{
				"Replace brake pads",
				"Resurface or replace brake rotors",
				"Brake system inspection",
				"Replace brake hardware",
			},
		},
		CategoryTransmissionGrinding: {
			Temporary: []string{
				"Check transmission fluid level",
				"Avoid aggressive shifting",
				"Let transmission warm up",
			},
			Permanent: []string{
				"Transmission fluid change",
				"Replace clutch (manual)",
				"Transmission rebuild",
				"Professional transmission service",
			},
		},
		CategoryExhaustLeak: {
			Temporary: []string{
				"Use exhaust paste for small leaks",
				"Avoid high RPM driving",
				"Check exhaust system regularly",
			},
			Permanent: []string{
				"Replace damaged exhaust components",
				"Weld exhaust system repairs",
				"Complete exhaust system inspection",
				"Replace exhaust gaskets",
			},
		},
		CategoryBeltSqueal: {
			Temporary: []string{
				"Check belt tension",
				"Clean belt and pulleys",
				"Use belt dressing spray",
			},
			Permanent: []string{
				"Replace worn belts",
				"Replace belt tensioner",
				"Pulley alignment check",
				"Replace damaged pulleys",
			},
		},
		CategoryNormalOperation: {
			Temporary: []string{
				"Continue regular maintenance",
				"Monitor for any changes",
			},
			Permanent: []string{
				"Follow manufacturer's maintenance schedule",
				"Regular inspections",
			},
		},
	}
}

// MustDefaultSuggestionTable panics only if the built-in table is malformed.
func MustDefaultSuggestionTable() *SuggestionTable {
	t, err := NewSuggestionTable(DefaultSuggestions())
	if err != nil {
		panic(err)
	}
	return t
}
