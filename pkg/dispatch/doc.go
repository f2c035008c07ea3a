// Package dispatch is the HTTP frontend of the RDAP server. Every lookup runs
// the same pipeline: parse the identifier, fetch the record, redact it for the
// requester, pick a renderer from the Accept header and write the response.
// Failures at any step end the request with the status StatusFor assigns.
package dispatch
