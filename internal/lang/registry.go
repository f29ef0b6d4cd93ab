// Package lang maps file extensions to the language descriptors the
// chunker needs: which AST node kinds start a new chunk, which are
// context worth preserving, and how embedded languages nest inside a
// host document.
package lang

import (
	"path/filepath"
	"strings"
)

// EmbeddedRule describes how a language's parser recurses into a block of
// a different language nested inside one of its own nodes (a fenced code
// block inside a markdown document, for example).
type EmbeddedRule struct {
	// ParentNodeType is the boundary node kind that may contain embedded
	// source, e.g. "code_block" for a markdown fence.
	ParentNodeType string

	// LanguageAttribute names a metadata field on the parent node that
	// carries the embedded language's identifier (markdown's fence info
	// string). Empty means always use DefaultLanguage.
	LanguageAttribute string

	// DefaultLanguage is used when LanguageAttribute is empty, or when the
	// parent node doesn't carry that attribute.
	DefaultLanguage string

	// Recursive allows the embedded content to itself contain further
	// embedded blocks, up to the chunker's depth cap.
	Recursive bool
}

// Descriptor is the static, versioned description of one language's
// chunking behavior. The boundary/context sets are authoritative for a
// given parser version; changing the parser without revisiting these sets
// risks silently misclassifying nodes.
type Descriptor struct {
	// Name is the opaque parser identifier (not necessarily a file
	// extension), e.g. "go", "typescript", "markdown".
	Name string

	// Boundaries is the set of AST node kinds that start a new chunk.
	Boundaries map[string]bool

	// Context is the set of AST node kinds whose text is prepended to
	// every chunk when context preservation is enabled (imports, type
	// aliases, namespace openers).
	Context map[string]bool

	// TypeNames optionally remaps a raw node kind to a friendlier chunk
	// type, e.g. "function_declaration" -> "function". Kinds absent from
	// this map use the raw kind as their chunk type.
	TypeNames map[string]string

	// Embedded lists the language's embedded-language rules, if any.
	Embedded []EmbeddedRule
}

// ChunkType resolves a raw node kind to the type recorded on an emitted
// chunk, applying Descriptor.TypeNames when present.
func (d *Descriptor) ChunkType(kind string) string {
	if d == nil {
		return kind
	}
	if friendly, ok := d.TypeNames[kind]; ok {
		return friendly
	}
	return kind
}

// EmbeddedRuleFor returns the embedded-language rule matching a boundary
// node kind, if any.
func (d *Descriptor) EmbeddedRuleFor(kind string) (EmbeddedRule, bool) {
	if d == nil {
		return EmbeddedRule{}, false
	}
	for _, r := range d.Embedded {
		if r.ParentNodeType == kind {
			return r, true
		}
	}
	return EmbeddedRule{}, false
}

var registry = map[string]*Descriptor{
	".go":  goDescriptor,
	".ts":  typescriptDescriptor,
	".tsx": typescriptDescriptor,
	".js":  javascriptDescriptor,
	".jsx": javascriptDescriptor,
	".mjs": javascriptDescriptor,
	".py":  pythonDescriptor,
	".rs":  rustDescriptor,
	".c":   cDescriptor,
	".h":   cDescriptor,
	".cpp": cDescriptor,
	".cc":  cDescriptor,
	".hpp": cDescriptor,
	".java": javaDescriptor,
	".php": phpDescriptor,
	".rb":  rubyDescriptor,
	".md":  markdownDescriptor,
	".mdx": markdownDescriptor,
}

// Detect looks up the language descriptor for a path by its lowercased
// extension, including the leading dot. It reports false for unknown
// extensions, which the chunker must treat as unknown_language and fall
// back to character splitting.
func Detect(path string) (*Descriptor, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := registry[ext]
	return d, ok
}

// SupportedLanguages returns the distinct language names this registry
// knows how to chunk, in no particular order.
func SupportedLanguages() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range registry {
		if !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}
	return names
}

var goDescriptor = &Descriptor{
	Name: "go",
	Boundaries: map[string]bool{
		"function": true,
		"type":     true,
		"const":    true,
		"var":      true,
	},
	Context: map[string]bool{
		"import": true,
	},
}

var typescriptDescriptor = &Descriptor{
	Name: "typescript",
	Boundaries: map[string]bool{
		"function_declaration":    true,
		"class_declaration":       true,
		"interface_declaration":   true,
		"type_alias_declaration":  true,
		"enum_declaration":        true,
		"export_statement":        true,
		"lexical_declaration":     true,
		"method_definition":       true,
	},
	Context: map[string]bool{
		"import_statement": true,
	},
	TypeNames: map[string]string{
		"function_declaration":   "function",
		"class_declaration":      "class",
		"interface_declaration":  "interface",
		"type_alias_declaration": "type_alias",
		"enum_declaration":       "enum",
		"method_definition":      "method",
		"lexical_declaration":    "variable",
	},
}

var javascriptDescriptor = &Descriptor{
	Name: "javascript",
	Boundaries: map[string]bool{
		"function_declaration": true,
		"class_declaration":    true,
		"export_statement":     true,
		"lexical_declaration":  true,
		"method_definition":    true,
	},
	Context: map[string]bool{
		"import_statement": true,
	},
	TypeNames: map[string]string{
		"function_declaration": "function",
		"class_declaration":    "class",
		"method_definition":    "method",
		"lexical_declaration":  "variable",
	},
}

var pythonDescriptor = &Descriptor{
	Name: "python",
	Boundaries: map[string]bool{
		"function_definition": true,
		"class_definition":    true,
	},
	Context: map[string]bool{
		"import_statement":      true,
		"import_from_statement": true,
	},
	TypeNames: map[string]string{
		"function_definition": "function",
		"class_definition":    "class",
	},
}

var rustDescriptor = &Descriptor{
	Name: "rust",
	Boundaries: map[string]bool{
		"function_item": true,
		"struct_item":   true,
		"enum_item":     true,
		"impl_item":     true,
		"trait_item":    true,
		"mod_item":      true,
	},
	Context: map[string]bool{
		"use_declaration": true,
	},
	TypeNames: map[string]string{
		"function_item": "function",
		"struct_item":   "struct",
		"enum_item":     "enum",
		"impl_item":     "impl",
		"trait_item":    "trait",
		"mod_item":      "module",
	},
}

var cDescriptor = &Descriptor{
	Name: "c",
	Boundaries: map[string]bool{
		"function_definition": true,
		"struct_specifier":    true,
		"enum_specifier":      true,
		"declaration":         true,
	},
	Context: map[string]bool{
		"preproc_include": true,
	},
	TypeNames: map[string]string{
		"function_definition": "function",
		"struct_specifier":    "struct",
		"enum_specifier":      "enum",
	},
}

var javaDescriptor = &Descriptor{
	Name: "java",
	Boundaries: map[string]bool{
		"class_declaration":     true,
		"interface_declaration": true,
		"enum_declaration":      true,
		"method_declaration":    true,
	},
	Context: map[string]bool{
		"import_declaration":  true,
		"package_declaration": true,
	},
	TypeNames: map[string]string{
		"class_declaration":     "class",
		"interface_declaration": "interface",
		"enum_declaration":      "enum",
		"method_declaration":    "method",
	},
}

var phpDescriptor = &Descriptor{
	Name: "php",
	Boundaries: map[string]bool{
		"function_definition": true,
		"class_declaration":   true,
		"method_declaration":  true,
	},
	Context: map[string]bool{
		"namespace_use_declaration": true,
	},
	TypeNames: map[string]string{
		"function_definition": "function",
		"class_declaration":   "class",
		"method_declaration":  "method",
	},
}

var rubyDescriptor = &Descriptor{
	Name: "ruby",
	Boundaries: map[string]bool{
		"method": true,
		"class":  true,
		"module": true,
	},
}

// markdownDescriptor is hand-scanned rather than tree-sitter-parsed (the
// retrieval pack carries no markdown grammar); headings are boundaries and
// fenced code blocks are boundaries with an embedded-language rule keyed
// off the fence's info string.
var markdownDescriptor = &Descriptor{
	Name: "markdown",
	Boundaries: map[string]bool{
		"heading":    true,
		"code_block": true,
	},
	Embedded: []EmbeddedRule{
		{
			ParentNodeType:    "code_block",
			LanguageAttribute: "info_string",
			DefaultLanguage:   "",
			Recursive:         true,
		},
	},
}

// DescriptorByName returns the descriptor for a parser name as recorded in
// Descriptor.Name, used when resolving an embedded language string (e.g.
// "ts" or "python") back to a descriptor for recursive chunking.
func DescriptorByName(name string) (*Descriptor, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	aliases := map[string]string{
		"ts":         "typescript",
		"typescript": "typescript",
		"js":         "javascript",
		"javascript": "javascript",
		"jsx":        "javascript",
		"tsx":        "typescript",
		"py":         "python",
		"python":     "python",
		"rs":         "rust",
		"rust":       "rust",
		"c":          "c",
		"cpp":        "c",
		"c++":        "c",
		"java":       "java",
		"php":        "php",
		"rb":         "ruby",
		"ruby":       "ruby",
		"go":         "go",
		"golang":     "go",
	}
	resolved, ok := aliases[name]
	if !ok {
		return nil, false
	}
	for _, d := range registry {
		if d.Name == resolved {
			return d, true
		}
	}
	return nil, false
}
