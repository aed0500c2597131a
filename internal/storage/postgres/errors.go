package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Коды ошибок PostgreSQL, на которые завязана маппинг-логика репозиториев.
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
	pgCodeCheckViolation      = "23514"
	pgCodeSerializationFail   = "40001"
	pgCodeDeadlockDetected    = "40P01"
)

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == pgCodeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == pgCodeForeignKeyViolation
}

func isCheckViolation(err error) bool {
	return pgErrCode(err) == pgCodeCheckViolation
}

// isTxConflict распознаёт конфликты, которые имеет смысл повторить.
func isTxConflict(err error) bool {
	code := pgErrCode(err)
	return code == pgCodeSerializationFail || code == pgCodeDeadlockDetected
}
