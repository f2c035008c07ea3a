// Package domain defines the RDAP record graph served by the registry frontend.
//
// This package contains pure domain types with ZERO external dependencies outside the
// Go standard library. All types in this package are:
//
// - Independent of infrastructure (no database, HTTP, policy loading, etc.)
// - Shaped after the RDAP JSON responses of RFC 9083
// - Testable in isolation without mocks
//
// Other packages (policy, redact, storage, dispatch) operate on these types. The
// dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
//
// Root objects (Domain, Entity, Nameserver, Autnum, IPNetwork) own their nested
// collections exclusively. Redaction mutates a graph in place, so every fetch must
// hand out a freshly decoded graph (see Decode).
package domain
