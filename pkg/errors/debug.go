package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err for a structured log line. It records the message,
// the typed code when one is in the chain, every wrapped layer, and the
// Postgres diagnostics of whichever driver raised the failure.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}

	fields := map[string]any{"error": err.Error()}
	if te := As(err); te != nil {
		fields["error_code"] = string(te.Code())
	}
	if chain := unwrapChain(err); len(chain) > 1 {
		fields["error_chain"] = chain
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		addPG(fields, pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail)
	case errors.As(err, &pqErr):
		addPG(fields, string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail)
	}
	return fields
}

// unwrapChain walks single and joined wraps depth first.
func unwrapChain(err error) []string {
	var chain []string
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			chain = append(chain, fmt.Sprintf("%T: %v", e, e))
			if joined, ok := e.(interface{ Unwrap() []error }); ok {
				for _, inner := range joined.Unwrap() {
					walk(inner)
				}
				return
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)
	return chain
}

func addPG(fields map[string]any, code, constraint, table, detail string) {
	fields["pg_code"] = code
	for key, value := range map[string]string{
		"pg_constraint": constraint,
		"pg_table":      table,
		"pg_detail":     detail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
}
