package errs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var ErrConstraintViolation = errors.New("unique constraint violation")

type DBError struct {
	Err error
}

func (e *DBError) Error() string {
	return e.Err.Error()
}

func (e *DBError) Unwrap() error {
	return e.Err
}

func NewDBError(err error) *DBError {
	return &DBError{Err: err}
}

var detailRe = regexp.MustCompile(`\([^()]+\)`)

// formatDetail turns "Key (a, b)=(1, 2) already exists." into "(a, b)=(1, 2)".
func formatDetail(detail string) string {
	matches := detailRe.FindAllString(detail, -1)
	var strs []string
	for i := 0; i+1 < len(matches); i = i + 2 {
		strs = append(strs, fmt.Sprintf("%s=%s", matches[i], matches[i+1]))
	}
	return strings.Join(strs, ", ")
}

func violation(detail string) error {
	if detail == "" {
		return NewDBError(ErrConstraintViolation)
	}
	return NewDBError(fmt.Errorf("%w: %s", ErrConstraintViolation, detail))
}

// ConvertError maps driver specific unique violations to ErrConstraintViolation.
func ConvertError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return violation(formatDetail(pgErr.Detail))
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation {
		return violation(formatDetail(pqErr.Detail))
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		_, columns, _ := strings.Cut(sqliteErr.Error(), "UNIQUE constraint failed: ")
		return violation(columns)
	}

	return err
}
