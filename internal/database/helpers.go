package database

import "database/sql"

// execRequireRows turns a zero-row update into notFoundErr so callers can
// distinguish a missing row from a successful write.
func execRequireRows(result sql.Result, err, notFoundErr error) error {
	if err != nil {
		return err
	}
	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return affectedErr
	}
	if affected == 0 {
		return notFoundErr
	}
	return nil
}
