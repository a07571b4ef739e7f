// Package http serves the origin over HTTP.
//
// Handler exposes stored objects with chi:
//
//	GET    /          list objects (store mode) or the default document
//	GET    /{path}    read an object
//	PUT    /{path}    store an object, then notify the converter
//	DELETE /{path}    remove an object
//
// Reads pass through the Markdown rewrite first. A request carrying
// "Accept: text/markdown" for /docs/page.html is served /docs/page.md, and
// /docs/ becomes /docs/index.md. Every read response varies on Accept.
//
// EventsHandler accepts S3 event notifications on POST /events and converts
// the referenced objects synchronously. A response of 500 means at least one
// event failed and the sender should redeliver.
package http
