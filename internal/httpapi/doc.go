// Package httpapi implements the JSON-over-HTTP surface (spec.md §6): all
// routes under /scheduling, tenant/subject extraction, and the
// request/response wire shapes for the catalog, reader, booking, and
// attendance services.
package httpapi
