package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, full_name, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         string
}

const createUser = `
INSERT INTO users (email, password_hash, full_name, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Email, arg.PasswordHash, arg.FullName, arg.Role)
	return scanUser(row)
}

const getUser = `
SELECT ` + userColumns + ` FROM users WHERE id = $1
`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUser, id))
}

const getUserByEmail = `
SELECT ` + userColumns + ` FROM users WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const listUsers = `
SELECT ` + userColumns + ` FROM users ORDER BY created_at
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserParams struct {
	ID       uuid.UUID
	FullName string
	Role     string
}

const updateUser = `
UPDATE users SET full_name = $2, role = $3, updated_at = now() WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser, arg.ID, arg.FullName, arg.Role))
}

const deactivateUser = `
UPDATE users SET is_active = false, updated_at = now() WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) DeactivateUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, deactivateUser, id))
}
