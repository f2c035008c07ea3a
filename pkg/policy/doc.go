// Package policy owns the field-visibility rules of the RDAP server and the
// evaluator that applies them to a viewer.
//
// Rules are flat `field = LEVEL` tables, one per object type, shipped as
// built-in defaults and optionally overridden by the operator. A loaded set of
// tables is an immutable snapshot: requests read it without locking, and a
// reload publishes a complete replacement atomically or nothing at all.
//
// The grammar is deliberately fixed to four levels (OWNER, AUTHENTICATE, ANY,
// NONE) and plain field names. There are no combinators or wildcards.
package policy
