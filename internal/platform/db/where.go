package db

import (
	"fmt"
	"strings"
)

// Where accumulates AND-ed WHERE clauses with positional arguments. Each
// format carries one %d (or %[1]d, repeated) for the argument's position.
type Where struct {
	clauses []string
	args    []any
}

func (w *Where) Add(format string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

// SQL returns " WHERE ..." or "" when no clause was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the positional arguments in order.
func (w *Where) Args() []any {
	return w.args
}

// Page appends LIMIT and OFFSET placeholders and returns the clause with the
// full argument list.
func (w *Where) Page(limit, offset int) (string, []any) {
	n := len(w.args)
	args := make([]any, 0, n+2)
	args = append(args, w.args...)
	args = append(args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// LikePattern escapes LIKE metacharacters in s and wraps it in wildcards.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
