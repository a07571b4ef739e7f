// Package rewrite decides, per request, whether a URI is rewritten to the
// Markdown sibling of the stored HTML object.
//
// The decision is a pure function of the configuration, the request URI and
// the Accept header:
//
//   - Accept does not mention text/markdown: the URI is returned unchanged.
//   - The final path segment has no extension: the request targets a
//     directory, so the default document (with the target extension) is
//     appended.
//   - The URI ends with one of the configured source extensions: that suffix
//     is replaced with the target extension.
//   - Anything else is returned unchanged.
//
// # Usage
//
//	cfg := rewrite.Default()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	rewrite.Rewrite(cfg, "/docs/", "text/markdown") // "/docs/index.md"
//
//	router.Use(rewrite.Middleware(cfg))
//
// Middleware always sets "Vary: Accept" because the same URI maps to two
// representations; caches in front of it must key on the header.
package rewrite
