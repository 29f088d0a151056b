package store

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/motoclube/roleplanner/internal/domain"
)

// fieldName restricts query field names to JSON keys, optionally dotted.
var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// indexedColumns are served by real columns instead of json_extract.
var indexedColumns = map[string]bool{"id": true, "user_id": true, "email": true}

// timeColumns sort by their integer column rather than the RFC 3339 text in data.
var timeColumns = map[string]bool{"created_at": true, "updated_at": true, "expires_at": true}

func jsonPath(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("%w: invalid field name %q", domain.ErrValidation, field)
	}
	return "$." + field, nil
}

// fieldExpr returns the SQL expression for field and its bound arguments.
func fieldExpr(field string) (string, []any, error) {
	if indexedColumns[field] {
		return field, nil, nil
	}
	path, err := jsonPath(field)
	if err != nil {
		return "", nil, err
	}
	return "json_extract(data, ?)", []any{path}, nil
}

// buildQuery translates q into a SELECT over table.
func buildQuery(table domain.Table, q domain.Query) (sq.SelectBuilder, error) {
	b := sq.Select(columns...).From(string(table))

	keys := make([]string, 0, len(q.Equals))
	for k := range q.Equals {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		expr, args, err := fieldExpr(k)
		if err != nil {
			return b, err
		}
		b = b.Where(sq.Expr(expr+" = ?", append(args, q.Equals[k])...))
	}

	if q.Search != "" && len(q.SearchFields) > 0 {
		pattern := "%" + escapeLike(q.Search) + "%"
		var or sq.Or
		for _, f := range q.SearchFields {
			expr, args, err := fieldExpr(f)
			if err != nil {
				return b, err
			}
			or = append(or, sq.Expr(expr+` LIKE ? ESCAPE '\'`, append(args, pattern)...))
		}
		b = b.Where(or)
	}

	if len(q.Tags) > 0 {
		args := make([]any, len(q.Tags))
		for i, t := range q.Tags {
			args[i] = t
		}
		b = b.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM json_each("+string(table)+".data, '$.tags') WHERE json_each.value IN ("+sq.Placeholders(len(args))+"))",
			args...))
	}

	minKeys := make([]string, 0, len(q.Min))
	for k := range q.Min {
		minKeys = append(minKeys, k)
	}
	slices.Sort(minKeys)
	for _, k := range minKeys {
		path, err := jsonPath(k)
		if err != nil {
			return b, err
		}
		b = b.Where(sq.Expr("CAST(json_extract(data, ?) AS REAL) >= ?", path, q.Min[k]))
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	switch {
	case q.SortBy == "":
		b = b.OrderBy("created_at " + dir)
	case indexedColumns[q.SortBy] || timeColumns[q.SortBy]:
		b = b.OrderBy(q.SortBy + " " + dir)
	default:
		path, err := jsonPath(q.SortBy)
		if err != nil {
			return b, err
		}
		b = b.OrderByClause("json_extract(data, ?) "+dir, path)
	}
	// rowid keeps equal sort keys in insertion order.
	b = b.OrderBy("rowid")

	if q.Page.Limit > 0 {
		b = b.Limit(uint64(q.Page.Limit)).Offset(uint64(q.Page.Offset()))
	}
	return b, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
