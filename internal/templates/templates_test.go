package templates

import (
	"testing"

	"github.com/ridepulse/ridepulse/internal/chartspec"
)

func TestMatchPicksBestKeywordScore(t *testing.T) {
	library := NewLibrary()

	tpl, ok := library.Match("What is the market share split between companies?")
	if !ok {
		t.Fatal("Match() found no template")
	}
	if tpl.Name != "market_share" {
		t.Fatalf("Name = %q, want market_share", tpl.Name)
	}
}

func TestMatchRequiresAtLeastOneKeyword(t *testing.T) {
	library := NewLibrary()

	if _, ok := library.Match("completely unrelated question"); ok {
		t.Fatal("Match() matched with zero keyword hits")
	}
}

func TestTemplatesCarryRenderableSpecs(t *testing.T) {
	for _, tpl := range NewLibrary().Templates() {
		if tpl.SQL == "" {
			t.Fatalf("template %q has no SQL", tpl.Name)
		}
		if !tpl.Spec.Kind.Valid() || tpl.Spec.Kind == chartspec.KindNone {
			t.Fatalf("template %q has kind %q", tpl.Name, tpl.Spec.Kind)
		}
		if tpl.Spec.X == nil || tpl.Spec.Y == nil {
			t.Fatalf("template %q is missing axes", tpl.Name)
		}
	}
}
