// Package sqlxrepos implements the repository interfaces on PostgreSQL with
// squirrel-built queries.
package sqlxrepos

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// getExec picks the service-provided executor (a transaction) over the
// repository's own handle.
func getExec(own core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return own
}
