package rewrite

import (
	"net/http"
	"net/url"
	"strings"
)

// MediaType is the Accept value that selects the Markdown representation.
const MediaType = "text/markdown"

// Rewrite returns the storage URI for a request. The result is uri itself
// whenever accept does not ask for Markdown or no rule applies.
//
// cfg must have passed Validate; under that condition Rewrite is idempotent:
// Rewrite(cfg, Rewrite(cfg, u, a), a) == Rewrite(cfg, u, a).
func Rewrite(cfg Config, uri, accept string) string {
	if !strings.Contains(accept, MediaType) {
		return uri
	}

	segment := uri[strings.LastIndexByte(uri, '/')+1:]

	if strings.IndexByte(segment, '.') < 0 {
		if strings.HasSuffix(uri, "/") {
			return uri + cfg.defaultBase() + cfg.TargetExtension
		}
		return uri + "/" + cfg.defaultBase() + cfg.TargetExtension
	}

	for _, ext := range cfg.Extensions {
		if len(uri) >= len(ext) && uri[len(uri)-len(ext):] == ext {
			return uri[:len(uri)-len(ext)] + cfg.TargetExtension
		}
	}

	return uri
}

// Middleware rewrites the request path before the wrapped handler resolves
// it. The incoming request is not modified; the handler receives a shallow
// copy with its own URL. It panics if cfg is invalid.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept")

			accept := strings.Join(r.Header.Values("Accept"), ",")
			p := Rewrite(cfg, r.URL.Path, accept)
			if p == r.URL.Path {
				next.ServeHTTP(w, r)
				return
			}

			r2 := new(http.Request)
			*r2 = *r
			r2.URL = new(url.URL)
			*r2.URL = *r.URL
			r2.URL.Path = p
			r2.URL.RawPath = ""
			r2.RequestURI = r2.URL.RequestURI()
			next.ServeHTTP(w, r2)
		})
	}
}
