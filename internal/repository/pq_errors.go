package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/hitoshi/contactman/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// constraintErrors は一意制約名とドメインエラーの対応表。
var constraintErrors = map[string]func() *model.AppError{
	"accounts_handle_key": model.NewHandleTakenError,
	"accounts_email_key":  model.NewEmailTakenError,
}

// translateUniqueViolation は一意制約違反を対応するAppErrorに変換する。
// 対象外のエラーはそのまま返す。
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	if newErr, ok := constraintErrors[pqErr.Constraint]; ok {
		return newErr()
	}
	return err
}
