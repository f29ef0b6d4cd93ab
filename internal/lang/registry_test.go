package lang

import "testing"

func TestDetectKnownExtension(t *testing.T) {
	d, ok := Detect("foo/bar.TS")
	if !ok {
		t.Fatalf("expected typescript descriptor for .TS")
	}
	if d.Name != "typescript" {
		t.Fatalf("expected typescript, got %s", d.Name)
	}
}

func TestDetectUnknownExtension(t *testing.T) {
	if _, ok := Detect("foo/bar.xyz"); ok {
		t.Fatalf("expected unknown extension to miss")
	}
}

func TestChunkTypeFallsBackToKind(t *testing.T) {
	d, _ := Detect("a.go")
	if got := d.ChunkType("const"); got != "const" {
		t.Fatalf("expected raw kind passthrough, got %s", got)
	}
}

func TestChunkTypeRemap(t *testing.T) {
	d, _ := Detect("a.ts")
	if got := d.ChunkType("function_declaration"); got != "function" {
		t.Fatalf("expected remapped type, got %s", got)
	}
}

func TestEmbeddedRuleForMarkdown(t *testing.T) {
	d, _ := Detect("README.md")
	rule, ok := d.EmbeddedRuleFor("code_block")
	if !ok {
		t.Fatalf("expected embedded rule for code_block")
	}
	if rule.LanguageAttribute != "info_string" {
		t.Fatalf("unexpected language attribute: %s", rule.LanguageAttribute)
	}
}

func TestDescriptorByNameAliases(t *testing.T) {
	d, ok := DescriptorByName("ts")
	if !ok || d.Name != "typescript" {
		t.Fatalf("expected typescript descriptor via alias")
	}
	if _, ok := DescriptorByName("cobol"); ok {
		t.Fatalf("expected unknown alias to miss")
	}
}

func TestSupportedLanguagesNonEmpty(t *testing.T) {
	if len(SupportedLanguages()) == 0 {
		t.Fatalf("expected at least one supported language")
	}
}
