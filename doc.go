// Package mdedge serves a static content collection to both browsers and
// LLM agents. Agents that send "Accept: text/markdown" are routed to a
// Markdown rendition of each HTML page; the renditions are produced by an
// event driven pipeline that runs whenever an HTML object is written.
//
// # Key Components
//
//   - ContentService: pairs a MetaDataRepo with FileStorage and serves paths
//     in store, static or spa mode
//   - MetaDataRepo: metadata persistence (PostgreSQL, SQLite)
//   - FileStorage: physical object storage (filesystem)
//
// The rewrite package decides which object a request resolves to, the
// convert package turns object-created events into Markdown writes, and the
// http package ties both to an origin server.
//
// # Server Modes
//
//   - ModeStore: exact paths or 404
//   - ModeStatic: index.html fallback for directories
//   - ModeSPA: /index.html for every miss
//
// Derived Markdown objects never fall back, so an agent sees a 404 until
// the pipeline has rendered the page.
//
// # Example Usage
//
//	service, err := mdedge.NewContentService(repo, storage, mdedge.ServiceConfig{
//	    Mode:             mdedge.ModeStatic,
//	    Bucket:           "site",
//	    DerivedExtension: ".md",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	meta, err := service.Create(ctx, mdedge.CreateObject{Path: "docs/index.html", ContentType: "text/html"}, body)
//	meta, f, err := service.Get(ctx, "docs/")
package mdedge
