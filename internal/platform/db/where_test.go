package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhere(t *testing.T) {
	var w Where
	require.Equal(t, "", w.SQL())

	w.Add("status = $%d", "VERIFIED")
	w.Add("(name ILIKE $%[1]d OR bio ILIKE $%[1]d)", LikePattern("card"))
	require.Equal(t, " WHERE status = $1 AND (name ILIKE $2 OR bio ILIKE $2)", w.SQL())
	require.Equal(t, []any{"VERIFIED", "%card%"}, w.Args())

	clause, args := w.Page(20, 40)
	require.Equal(t, " LIMIT $3 OFFSET $4", clause)
	require.Equal(t, []any{"VERIFIED", "%card%", 20, 40}, args)
	require.Len(t, w.Args(), 2, "Page must not grow the filter args")
}

func TestLikePattern(t *testing.T) {
	require.Equal(t, `%a\_b\%c\\%`, LikePattern(`a_b%c\`))
	require.Equal(t, "%%", LikePattern(""))
}
