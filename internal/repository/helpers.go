package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound converts sql.ErrNoRows into a nil result without an
// error. A car number with no account row is an expected lookup result,
// not a failure:
//
//	var user model.User
//	err := r.db.GetContext(ctx, &user, query, identity)
//	return HandleNotFound(&user, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
