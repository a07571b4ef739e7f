package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/mdedge/rewrite"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     rewrite.Config
		wantErr bool
	}{
		{"default", rewrite.Default(), false},
		{"empty extensions", rewrite.Config{DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"extension without dot", rewrite.Config{Extensions: []string{"html"}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"bare dot", rewrite.Config{Extensions: []string{"."}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"extension with slash", rewrite.Config{Extensions: []string{".a/b"}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"target in extensions", rewrite.Config{Extensions: []string{".html", ".md"}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"extension suffix of target", rewrite.Config{Extensions: []string{".d"}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"extension ends with target", rewrite.Config{Extensions: []string{".x.md"}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"duplicate", rewrite.Config{Extensions: []string{".html", ".html"}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"shadowed", rewrite.Config{Extensions: []string{".html", ".xhtml"}, DefaultDocument: "index.html", TargetExtension: ".md"}, true},
		{"longest first", rewrite.Config{Extensions: []string{".xhtml", ".html"}, DefaultDocument: "index.html", TargetExtension: ".md"}, false},
		{"missing target", rewrite.Config{Extensions: []string{".html"}, DefaultDocument: "index.html"}, true},
		{"target without dot", rewrite.Config{Extensions: []string{".html"}, DefaultDocument: "index.html", TargetExtension: "md"}, true},
		{"empty default document", rewrite.Config{Extensions: []string{".html"}, TargetExtension: ".md"}, true},
		{"default document with dir", rewrite.Config{Extensions: []string{".html"}, DefaultDocument: "a/index.html", TargetExtension: ".md"}, true},
		{"default document without extension", rewrite.Config{Extensions: []string{".html"}, DefaultDocument: "index", TargetExtension: ".md"}, true},
		{"default document hidden file", rewrite.Config{Extensions: []string{".html"}, DefaultDocument: ".html", TargetExtension: ".md"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, rewrite.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_HasSourceExtension(t *testing.T) {
	cfg := rewrite.Default()

	assert.True(t, cfg.HasSourceExtension("a/b.html"))
	assert.True(t, cfg.HasSourceExtension("a/b.htm"))
	assert.False(t, cfg.HasSourceExtension("a/b.md"))
	assert.False(t, cfg.HasSourceExtension("a/b.HTML"))
	assert.False(t, cfg.HasSourceExtension("a/b"))
}
