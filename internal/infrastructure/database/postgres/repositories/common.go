// Package repositories contains the PostgreSQL implementations of the domain
// repository interfaces.
package repositories

import (
	"fmt"
	"strings"

	"github.com/turtacn/mixingcompass/pkg/types/common"
)

// pageLimits converts pagination into LIMIT/OFFSET values, applying the
// shared normalization rules.
func pageLimits(p common.Pagination) (limit, offset int) {
	p = p.Normalize()
	return p.PageSize, p.Offset()
}

// likePattern wraps a query term for a case-insensitive substring match.
func likePattern(q string) string {
	return "%" + strings.TrimSpace(q) + "%"
}

// condBuilder accumulates WHERE conditions with positional arguments.  Each
// "?" in an expression is rewritten to the next $n placeholder.
type condBuilder struct {
	conds []string
	args  []interface{}
}

func (b *condBuilder) add(expr string, args ...interface{}) {
	for _, a := range args {
		b.args = append(b.args, a)
		expr = strings.Replace(expr, "?", fmt.Sprintf("$%d", len(b.args)), 1)
	}
	b.conds = append(b.conds, expr)
}

// where renders the accumulated conditions, or an empty string when there are
// none.
func (b *condBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}
