// Package arch provides vocabulary predicates for architecture optimization
// entities: optimization runs and the variants they produce.
//
// A run entity records the request and its outcome. Variant entities carry
// their score, lineage and the operator that produced them, so a graph
// query can walk from the best variant back to the baseline.
//
// Import this package to auto-register predicates:
//
//	import _ "github.com/c360studio/semarch/vocabulary/arch"
package arch
