// Package redact removes from an RDAP record graph every field the requester
// may not see.
//
// Each record type has a small declarative schema: field name, accessor and,
// for nested objects, the routine to descend into. One generic routine walks
// a schema against the type's policy table. Ownership is recomputed for every
// nested entity, nameserver, network and autnum, so siblings in one response
// can be disclosed differently.
package redact
