package resolver

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/textutil"
)

// Normalize returns the canonical key for a category name. It is idempotent.
func Normalize(name string) string {
	lowered := cases.Lower(language.Und).String(strings.ReplaceAll(name, "_", " "))
	return strings.Join(strings.Fields(lowered), " ")
}

// Slug returns the readable filesystem token for a category name. Distinct
// names may share a slug; use Directory for storage paths.
func Slug(name string) string {
	return textutil.SanitizeToken(Normalize(name))
}

// Directory returns the storage directory owned by one category. The id
// suffix keeps names that sanitize alike ("JLo", "J.Lo") apart.
func Directory(category *catalog.Category) string {
	return Slug(category.NormalizedKey) + "-" + strconv.FormatInt(category.ID, 10)
}

// DisplayName tidies user input for storage as a display name, keeping the
// original casing.
func DisplayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
