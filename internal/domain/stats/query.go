package stats

import "github.com/okian/umastats/internal/domain/model"

// Query selects, orders and truncates the stats tables.
type Query struct {
	Filter model.Filter
	Sort   string
	Order  Order
	Limit  int // <= 0 means no limit
}

// Apply sorts both tables of res by q.Sort and truncates them to q.Limit.
// A key that applies to one table only leaves the other in place; a key
// neither table knows fails with ErrUnknownSortKey.
func (q Query) Apply(res *Result) error {
	errE := SortEntrants(res.Entrants, q.Sort, q.Order)
	errO := SortOperators(res.Operators, q.Sort, q.Order)
	if errE != nil && errO != nil {
		return errE
	}

	if q.Limit > 0 {
		if len(res.Entrants) > q.Limit {
			res.Entrants = res.Entrants[:q.Limit]
		}
		if len(res.Operators) > q.Limit {
			res.Operators = res.Operators[:q.Limit]
		}
	}
	return nil
}
