package resolver

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/textutil"
	"vaultgallery/internal/vaulterr"
)

const (
	// MaxCandidates caps the ambiguity list returned to callers.
	MaxCandidates = 8

	maxSuggestions      = 3
	suggestionThreshold = 0.35
)

// Outcome tags a Resolution.
type Outcome int

const (
	NotFound Outcome = iota
	Resolved
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Resolution is the result of resolving free text to a category.
type Resolution struct {
	Input       string
	Outcome     Outcome
	Category    *catalog.Category
	Candidates  []*catalog.Category
	Suggestions []string
}

// Err converts an unresolved outcome into the matching vault error.
func (r Resolution) Err() error {
	switch r.Outcome {
	case Resolved:
		return nil
	case Ambiguous:
		names := make([]string, 0, len(r.Candidates))
		for _, c := range r.Candidates {
			names = append(names, c.DisplayName)
		}
		return &vaulterr.AmbiguousCategoryError{Input: r.Input, Candidates: names}
	default:
		return &vaulterr.CategoryNotFoundError{Input: r.Input, Suggestions: r.Suggestions}
	}
}

// Resolver resolves names against the catalog.
type Resolver struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs a Resolver.
func New(store *catalog.Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logging.NewComponentLogger(logger, "resolver")}
}

// FindMatches returns the exact match alone when one exists, otherwise every
// category whose key contains the normalized input, sorted by display name.
func (r *Resolver) FindMatches(ctx context.Context, input string) ([]*catalog.Category, error) {
	matches, _, err := r.findMatches(ctx, input)
	return matches, err
}

func (r *Resolver) findMatches(ctx context.Context, input string) ([]*catalog.Category, []*catalog.Category, error) {
	key := Normalize(input)
	if key == "" {
		return nil, nil, nil
	}

	exact, err := r.store.CategoryByKey(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if exact != nil {
		return []*catalog.Category{exact}, nil, nil
	}

	all, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, nil, err
	}

	var exacts, partials []*catalog.Category
	for _, category := range all {
		candidate := Normalize(category.NormalizedKey)
		switch {
		case candidate == key:
			exacts = append(exacts, category)
		case strings.Contains(candidate, key):
			partials = append(partials, category)
		}
	}
	if len(exacts) > 0 {
		canonical := slices.MinFunc(exacts, func(a, b *catalog.Category) int { return compareInt64(a.ID, b.ID) })
		return []*catalog.Category{canonical}, all, nil
	}
	slices.SortStableFunc(partials, byDisplayName)
	return partials, all, nil
}

// Resolve resolves input to a single category when exactly one matches.
func (r *Resolver) Resolve(ctx context.Context, input string) (Resolution, error) {
	res := Resolution{Input: strings.TrimSpace(input)}
	matches, all, err := r.findMatches(ctx, input)
	if err != nil {
		return res, err
	}

	switch len(matches) {
	case 1:
		res.Outcome = Resolved
		res.Category = matches[0]
	case 0:
		res.Outcome = NotFound
		names := make([]string, 0, len(all))
		for _, c := range all {
			names = append(names, c.DisplayName)
		}
		res.Suggestions = textutil.Suggest(input, names, maxSuggestions, suggestionThreshold)
	default:
		res.Outcome = Ambiguous
		if len(matches) > MaxCandidates {
			matches = matches[:MaxCandidates]
		}
		res.Candidates = matches
	}
	return res, nil
}

// ResolveOptional resolves input, treating empty input as "no scope". It
// returns the resolver error for ambiguous or unknown names.
func (r *Resolver) ResolveOptional(ctx context.Context, input string) (*catalog.Category, error) {
	if Normalize(input) == "" {
		return nil, nil
	}
	res, err := r.Resolve(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Category, nil
}

// Require resolves input and fails for empty names.
func (r *Resolver) Require(ctx context.Context, input string) (*catalog.Category, error) {
	if Normalize(input) == "" {
		return nil, vaulterr.Validation("category name is required")
	}
	return r.ResolveOptional(ctx, input)
}

// GetOrCreate returns the category whose key exactly equals the normalized
// name, creating it when absent. Partial matches never capture the name.
func (r *Resolver) GetOrCreate(ctx context.Context, name string) (*catalog.Category, bool, error) {
	key := Normalize(name)
	if key == "" {
		return nil, false, vaulterr.Validation("category name is required")
	}
	category, created, err := r.store.GetOrCreateCategory(ctx, DisplayName(name), key)
	if err != nil {
		return nil, false, err
	}
	if created {
		r.logger.Info("category created",
			logging.String(logging.FieldCategory, category.DisplayName),
			logging.Int64("category_id", category.ID),
		)
	}
	return category, created, nil
}

// Create adds a category explicitly; an existing normalized key conflicts.
func (r *Resolver) Create(ctx context.Context, name string) (*catalog.Category, error) {
	key := Normalize(name)
	if key == "" {
		return nil, vaulterr.Validation("category name is required")
	}
	return r.store.CreateCategory(ctx, DisplayName(name), key)
}

func byDisplayName(a, b *catalog.Category) int {
	if c := strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)); c != 0 {
		return c
	}
	if c := strings.Compare(a.DisplayName, b.DisplayName); c != 0 {
		return c
	}
	return compareInt64(a.ID, b.ID)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
