// Package store defines interfaces for persisting run progress. Implementations
// live in subpackages; this package must not import database drivers or
// concrete clients.
package store
