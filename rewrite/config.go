package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned when a Config violates its invariants.
var ErrInvalidConfig = errors.New("invalid rewrite config")

// Config holds the rewrite options. It is built once at startup and treated
// as read-only afterwards.
type Config struct {
	// Extensions are the source suffixes eligible for rewriting, matched in order.
	Extensions []string `mapstructure:"extensions" yaml:"extensions" validate:"required,min=1,dive,required"`
	// DefaultDocument is served for directory requests, e.g. "index.html".
	DefaultDocument string `mapstructure:"default_document" yaml:"default_document" validate:"required"`
	// TargetExtension is the suffix of the derived representation, e.g. ".md".
	TargetExtension string `mapstructure:"target_extension" yaml:"target_extension" validate:"required"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Extensions:      []string{".html", ".htm"},
		DefaultDocument: "index.html",
		TargetExtension: ".md",
	}
}

// Validate checks the invariants the rewrite decision relies on.
func (c Config) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("validate rewrite config: %w: extensions cannot be empty", ErrInvalidConfig)
	}

	if !isExtension(c.TargetExtension) {
		return fmt.Errorf("validate rewrite config: %w: invalid target extension %q", ErrInvalidConfig, c.TargetExtension)
	}

	for i, ext := range c.Extensions {
		if !isExtension(ext) {
			return fmt.Errorf("validate rewrite config: %w: invalid extension %q", ErrInvalidConfig, ext)
		}

		// Overlap with the target would rewrite an already rewritten URI.
		if strings.HasSuffix(c.TargetExtension, ext) || strings.HasSuffix(ext, c.TargetExtension) {
			return fmt.Errorf("validate rewrite config: %w: extension %q matches target extension %q",
				ErrInvalidConfig, ext, c.TargetExtension)
		}

		for _, later := range c.Extensions[i+1:] {
			if later == ext {
				return fmt.Errorf("validate rewrite config: %w: duplicate extension %q", ErrInvalidConfig, ext)
			}
			if strings.HasSuffix(later, ext) {
				return fmt.Errorf("validate rewrite config: %w: extension %q shadows %q, list the longer one first",
					ErrInvalidConfig, ext, later)
			}
		}
	}

	doc := c.DefaultDocument
	dot := strings.LastIndexByte(doc, '.')
	if doc == "" || strings.ContainsRune(doc, '/') || dot <= 0 || dot == len(doc)-1 {
		return fmt.Errorf("validate rewrite config: %w: invalid default document %q", ErrInvalidConfig, doc)
	}

	return nil
}

// HasSourceExtension reports whether key ends with one of the configured
// source extensions.
func (c Config) HasSourceExtension(key string) bool {
	for _, ext := range c.Extensions {
		if strings.HasSuffix(key, ext) {
			return true
		}
	}
	return false
}

// defaultBase is the default document without its extension.
func (c Config) defaultBase() string {
	if i := strings.LastIndexByte(c.DefaultDocument, '.'); i >= 0 {
		return c.DefaultDocument[:i]
	}
	return c.DefaultDocument
}

func isExtension(ext string) bool {
	return len(ext) > 1 && ext[0] == '.' && !strings.ContainsAny(ext, "/ ")
}
