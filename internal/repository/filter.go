package repository

import "strings"

// Filter accumulates parameterized WHERE predicates. Column expressions
// are always fixed strings chosen by the repository; user input only
// ever travels through args.
type Filter struct {
	where []string
	args  []any
}

// Where appends a predicate with its placeholder values.
func (f *Filter) Where(cond string, args ...any) *Filter {
	f.where = append(f.where, cond)
	f.args = append(f.args, args...)
	return f
}

// WhereIf appends the predicate only when ok is true.
func (f *Filter) WhereIf(ok bool, cond string, args ...any) *Filter {
	if ok {
		return f.Where(cond, args...)
	}
	return f
}

// LikeAny matches term case-insensitively as a substring of any of the
// given column expressions. A blank term adds nothing.
func (f *Filter) LikeAny(term string, cols ...string) *Filter {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return f
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, "LOWER("+c+") LIKE ? ESCAPE '!'")
		f.args = append(f.args, pattern)
	}
	f.where = append(f.where, "("+strings.Join(parts, " OR ")+")")
	return f
}

// SQL returns the joined condition (never empty) and its arguments.
func (f *Filter) SQL() (string, []any) {
	if len(f.where) == 0 {
		return "1=1", nil
	}
	return strings.Join(f.where, " AND "), append([]any(nil), f.args...)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }
