// Package resolver maps free-text category names onto canonical catalog
// categories.
//
// Names are compared by their normalized key: lowercase, underscores read as
// spaces, whitespace collapsed. A lookup either resolves to exactly one
// category, is ambiguous between several partial matches, or finds nothing;
// callers receive that as a tagged Resolution rather than a nullable result.
// MergeDuplicates folds categories whose display names normalize to the same
// key into the lowest-id category.
package resolver
