package search

import (
	"context"
	"unicode/utf8"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

type Searcher interface {
	SearchCustomers(ctx context.Context, mode models.SearchMode, query, token string) (models.SearchResult, error)
}

// Rows holds one of two row shapes, chosen by Mode: plan rows for id
// searches, customer rows for phone and name searches. The other slice is
// always nil.
type Rows struct {
	Mode      models.SearchMode `json:"mode"`
	Plans     []models.Plan     `json:"plans,omitempty"`
	Customers []models.Customer `json:"customers,omitempty"`
}

func RowsFrom(mode models.SearchMode, result models.SearchResult) Rows {
	if mode == models.SearchByID {
		return Rows{Mode: mode, Plans: result.Plans}
	}
	return Rows{Mode: mode, Customers: result.Customers}
}

func (r Rows) Len() int {
	if r.Mode == models.SearchByID {
		return len(r.Plans)
	}
	return len(r.Customers)
}

// Eligible reports whether query is long enough to be sent. Length is
// counted in runes so non-Latin names are not penalised.
func Eligible(query string, minLength int) bool {
	return utf8.RuneCountInString(query) > minLength
}

// Execute runs a single search and shapes the response for mode.
func Execute(ctx context.Context, searcher Searcher, mode models.SearchMode, query, token string) (Rows, error) {
	result, err := searcher.SearchCustomers(ctx, mode, query, token)
	if err != nil {
		return Rows{Mode: mode}, err
	}
	return RowsFrom(mode, result), nil
}
