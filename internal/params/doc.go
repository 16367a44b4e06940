// Package params validates user-supplied graph parameters against their
// declared schema and binds them into SQL as positional placeholders.
package params
