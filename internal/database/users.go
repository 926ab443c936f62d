package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"uocsclub.net/cpstats/internal/types"
)

const userColumns = `id, username, codeforces_username, atcoder_username, codechef_username, leetcode_username, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*types.UserRecord, error) {
	user := &types.UserRecord{}
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.CodeforcesUsername,
		&user.AtcoderUsername,
		&user.CodechefUsername,
		&user.LeetcodeUsername,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsername returns nil without an error when no account exists.
func (d *DatabaseInst) GetUserByUsername(username string) (*types.UserRecord, error) {
	d.dbLock.Lock()
	defer d.dbLock.Unlock()

	row := d.db.QueryRow("SELECT "+userColumns+" FROM cp_user WHERE username = ?", username)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (d *DatabaseInst) ListUsers() ([]*types.UserRecord, error) {
	d.dbLock.Lock()
	defer d.dbLock.Unlock()

	rows, err := d.db.Query("SELECT " + userColumns + " FROM cp_user ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*types.UserRecord{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SaveUser inserts the record, or updates the handles of the account with
// the same username. New accounts get a fresh uuid.
func (d *DatabaseInst) SaveUser(user *types.UserRecord) (*types.UserRecord, error) {
	d.dbLock.Lock()
	defer d.dbLock.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	saved := *user
	saved.UpdatedAt = now

	existing, err := scanUser(tx.QueryRow("SELECT "+userColumns+" FROM cp_user WHERE username = ?", user.Username))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if saved.Id == "" {
			saved.Id = uuid.NewString()
		}
		saved.CreatedAt = now
		_, err = tx.Exec(
			"INSERT INTO cp_user ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?);",
			saved.Id, saved.Username,
			saved.CodeforcesUsername, saved.AtcoderUsername, saved.CodechefUsername, saved.LeetcodeUsername,
			saved.CreatedAt, saved.UpdatedAt,
		)
	case err != nil:
		tx.Rollback()
		return nil, err
	default:
		saved.Id = existing.Id
		saved.CreatedAt = existing.CreatedAt
		_, err = tx.Exec(
			"UPDATE cp_user SET codeforces_username = ?, atcoder_username = ?, codechef_username = ?, leetcode_username = ?, updated_at = ? WHERE id = ?;",
			saved.CodeforcesUsername, saved.AtcoderUsername, saved.CodechefUsername, saved.LeetcodeUsername,
			saved.UpdatedAt, saved.Id,
		)
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &saved, nil
}
