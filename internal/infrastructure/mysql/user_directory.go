package mysql

import (
	"context"
	"database/sql"
	"errors"

	"auction-platform/internal/domain"
)

type MySQLUserDirectory struct {
	db *sql.DB
}

func NewMySQLUserDirectory(db *sql.DB) *MySQLUserDirectory {
	return &MySQLUserDirectory{db: db}
}

func (d *MySQLUserDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT id, email FROM users WHERE id = ?`

	var user domain.User
	err := d.db.QueryRowContext(ctx, query, userID).Scan(&user.ID, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
