package querysql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/queryir"
)

// ChecksumFunction is the SQL function the store registers on every
// connection. It returns the unsigned CRC32 of its text argument.
const ChecksumFunction = "replica_crc32"

// rowChecksumExpr hashes the salt together with every replicated column of
// the row. Annotations are stored as canonical JSON, so equal content
// hashes equally. Fields are joined with the unit separator char(31). The
// single placeholder is the salt.
const rowChecksumExpr = ChecksumFunction + "(? || char(31) || etag || char(31) || object_version || char(31) || " +
	"IFNULL(parent_id, -1) || char(31) || IFNULL(benefactor_id, -1) || char(31) || " +
	"sub_type || char(31) || name || char(31) || annotations)"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLCompiler compiles scope predicates to parameterized SQL for SQLite.
//
// CRITICAL: every checksum query carries an ORDER BY on the emitted id so
// streams honour the ascending-id contract.
// CRITICAL: values are always parameterized, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// ChecksumQuery describes one checksum stream to compile.
type ChecksumQuery struct {
	Table  string
	Salt   uint64
	Mode   checksum.Mode
	Filter queryir.Predicate
}

// CompileChecksum compiles a checksum stream query.
//
// ModeObjects yields (object_id, checksum) per matching row.
// ModeContainers yields (parent_id, SUM(checksum)) per parent.
func (c *SQLCompiler) CompileChecksum(q ChecksumQuery) (string, []any, error) {
	if err := validateIdent(q.Table); err != nil {
		return "", nil, err
	}
	where, params, err := c.CompilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}

	// The salt placeholder precedes the WHERE placeholders.
	args := append([]any{strconv.FormatUint(q.Salt, 10)}, params...)

	switch q.Mode {
	case checksum.ModeObjects:
		sql := fmt.Sprintf("SELECT object_id, %s FROM %s WHERE %s ORDER BY object_id ASC",
			rowChecksumExpr, q.Table, where)
		return sql, args, nil
	case checksum.ModeContainers:
		sql := fmt.Sprintf("SELECT parent_id, SUM(%s) FROM %s WHERE %s AND parent_id IS NOT NULL "+
			"GROUP BY parent_id ORDER BY parent_id ASC",
			rowChecksumExpr, q.Table, where)
		return sql, args, nil
	default:
		return "", nil, fmt.Errorf("unsupported checksum mode: %s", q.Mode)
	}
}

// CompileSelect compiles a SELECT of the given columns from table restricted
// by filter, ordered by object id.
func (c *SQLCompiler) CompileSelect(table string, columns []string, filter queryir.Predicate) (string, []any, error) {
	if err := validateIdent(table); err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("select from %s: no columns", table)
	}
	for _, col := range columns {
		if err := validateIdent(col); err != nil {
			return "", nil, err
		}
	}
	where, params, err := c.CompilePredicate(filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY object_id ASC, object_version ASC",
		strings.Join(columns, ", "), table, where)
	return sql, params, nil
}

// CompileDelete compiles a DELETE from table restricted by filter.
func (c *SQLCompiler) CompileDelete(table string, filter queryir.Predicate) (string, []any, error) {
	if err := validateIdent(table); err != nil {
		return "", nil, err
	}
	where, params, err := c.CompilePredicate(filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), params, nil
}

// CompilePredicate compiles a predicate to a WHERE clause fragment.
// A nil predicate is always true.
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if err := queryir.Validate(p); err != nil {
		return "", nil, err
	}
	return c.compilePredicate(p)
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return fmt.Sprintf("%s = ?", pred.Field), []any{toParam(pred.Value)}, nil
	case queryir.In:
		return c.compileIn(pred)
	case queryir.PairIn:
		return c.compilePairIn(pred)
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil // nothing is in the empty set
	}
	params := make([]any, len(in.Values))
	for i, v := range in.Values {
		params[i] = toParam(v)
	}
	return fmt.Sprintf("%s IN (%s)", in.Field, placeholders(len(in.Values))), params, nil
}

func (c *SQLCompiler) compilePairIn(in queryir.PairIn) (string, []any, error) {
	if len(in.Pairs) == 0 {
		return "1 = 0", nil, nil
	}
	tuples := make([]string, len(in.Pairs))
	params := make([]any, 0, 2*len(in.Pairs))
	for i, pair := range in.Pairs {
		tuples[i] = "(?, ?)"
		params = append(params, toParam(pair[0]), toParam(pair[1]))
	}
	sql := fmt.Sprintf("(%s, %s) IN (VALUES %s)", in.Fields[0], in.Fields[1], strings.Join(tuples, ", "))
	return sql, params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, child := range and.Predicates {
		sql, childParams, err := c.compilePredicate(child)
		if err != nil {
			return "", nil, err
		}
		if _, nested := child.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, childParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// toParam converts predicate values to driver-friendly parameters.
func toParam(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(val)
	default:
		return v
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func validateIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid SQL identifier %q", name)
	}
	return nil
}
