// Package negotiate picks a response renderer from an Accept header.
package negotiate
