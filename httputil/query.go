package httputil

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/fastcore-dev/fastcore/errors"
)

// Pagination defaults. Page sizes above the max are rejected rather than
// clamped so clients learn the limit.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageParams reads the "page" and "size" query parameters. Page numbers are
// 1-indexed; absent parameters fall back to page 1 with DefaultPageSize.
func PageParams(r *http.Request) (page, size int, err error) {
	page, err = intParam(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 {
		return 0, 0, errors.Validation("page must be 1 or greater").WithField("page")
	}

	size, err = intParam(r, "size", DefaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	if size < 1 || size > MaxPageSize {
		return 0, 0, errors.Validation(
			fmt.Sprintf("size must be between 1 and %d", MaxPageSize)).WithField("size")
	}
	return page, size, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Validation(fmt.Sprintf("%s must be an integer", name)).WithField(name)
	}
	return value, nil
}

// SortField is one requested ordering, parsed from "field" or
// "field:direction".
type SortField struct {
	Field string
	Desc  bool
}

// Clause renders the field as an ORDER BY term.
func (s SortField) Clause() string {
	if s.Desc {
		return s.Field + " DESC"
	}
	return s.Field + " ASC"
}

// SortParams reads repeated "sort_by" query parameters in the form
// "field" or "field:direction" and validates each field against the
// allowed set. Unknown directions default to ascending.
func SortParams(r *http.Request, allowed ...string) ([]SortField, error) {
	var fields []SortField
	for _, raw := range r.URL.Query()["sort_by"] {
		parts := strings.SplitN(raw, ":", 2)
		field := strings.TrimSpace(parts[0])
		if !fieldAllowed(field, allowed) {
			return nil, errors.Validation(fmt.Sprintf(
				"invalid sort field %q, allowed fields are: %s",
				field, strings.Join(sortedCopy(allowed), ", "))).WithField("sort_by")
		}
		desc := len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[1]), "desc")
		fields = append(fields, SortField{Field: field, Desc: desc})
	}
	return fields, nil
}

// SortClause joins parsed sort fields into an ORDER BY expression, or
// returns fallback when no sorting was requested.
func SortClause(fields []SortField, fallback string) string {
	if len(fields) == 0 {
		return fallback
	}
	clauses := make([]string, len(fields))
	for i, f := range fields {
		clauses[i] = f.Clause()
	}
	return strings.Join(clauses, ", ")
}

// FilterOperator names a comparison in a filter condition.
type FilterOperator string

const (
	OpEq        FilterOperator = "eq"
	OpNe        FilterOperator = "ne"
	OpGt        FilterOperator = "gt"
	OpGe        FilterOperator = "ge"
	OpLt        FilterOperator = "lt"
	OpLe        FilterOperator = "le"
	OpIn        FilterOperator = "in"
	OpNotIn     FilterOperator = "not_in"
	OpLike      FilterOperator = "like"
	OpILike     FilterOperator = "ilike"
	OpIsNull    FilterOperator = "is_null"
	OpIsNotNull FilterOperator = "is_not_null"
)

var filterOperators = map[FilterOperator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGe: true, OpLt: true, OpLe: true,
	OpIn: true, OpNotIn: true, OpLike: true, OpILike: true,
	OpIsNull: true, OpIsNotNull: true,
}

// needsValue reports whether the operator takes a comparison value.
func (op FilterOperator) needsValue() bool {
	return op != OpIsNull && op != OpIsNotNull
}

// FilterCondition is one parsed filter. Values holds the comma-split list
// for the in and not_in operators; Value holds the raw text otherwise.
type FilterCondition struct {
	Field    string
	Operator FilterOperator
	Value    string
	Values   []string
}

// FilterParams reads repeated "filter" query parameters in the form
// "field:operator:value" ("field:operator" for the null checks) and
// validates each field against the allowed set. Values may themselves
// contain colons; only the first two separate the field and operator.
func FilterParams(r *http.Request, allowed ...string) ([]FilterCondition, error) {
	var conditions []FilterCondition
	for _, raw := range r.URL.Query()["filter"] {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 {
			return nil, errors.Validation(fmt.Sprintf(
				"invalid filter %q, expected field:operator:value", raw)).WithField("filter")
		}

		field := strings.TrimSpace(parts[0])
		if !fieldAllowed(field, allowed) {
			return nil, errors.Validation(fmt.Sprintf(
				"invalid filter field %q, allowed fields are: %s",
				field, strings.Join(sortedCopy(allowed), ", "))).WithField("filter")
		}

		op := FilterOperator(strings.TrimSpace(parts[1]))
		if !filterOperators[op] {
			return nil, errors.Validation(fmt.Sprintf(
				"invalid filter operator %q", string(op))).WithField("filter")
		}

		cond := FilterCondition{Field: field, Operator: op}
		if op.needsValue() {
			if len(parts) < 3 {
				return nil, errors.Validation(fmt.Sprintf(
					"missing value for filter %q", raw)).WithField("filter")
			}
			cond.Value = parts[2]
			if op == OpIn || op == OpNotIn {
				for _, v := range strings.Split(parts[2], ",") {
					cond.Values = append(cond.Values, strings.TrimSpace(v))
				}
			}
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}

func fieldAllowed(field string, allowed []string) bool {
	if field == "" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == field {
			return true
		}
	}
	return false
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
