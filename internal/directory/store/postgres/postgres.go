// Package postgres persists the mail directory in PostgreSQL.
//
// The schema mirrors the classic mail-server layout: multi-valued fields are
// delimited text columns (privileges newline-separated, destinations
// comma-separated) so Postfix and Dovecot can query them directly. The
// delimiters exist only at this boundary; the domain model always sees
// []string.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"mailkeep/internal/directory/models"
	"mailkeep/pkg/platform/sentinel"
)

// Schema creates the two directory relations. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	email      TEXT PRIMARY KEY,
	password   TEXT NOT NULL,
	privileges TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS aliases (
	source      TEXT PRIMARY KEY,
	destination TEXT NOT NULL
);
`

// EnsureSchema applies Schema to db.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure directory schema: %w", err)
	}
	return nil
}

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Insert(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password, privileges) VALUES ($1, $2, $3)`,
		user.Email, user.Password, joinPrivileges(user.Privileges))
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, email, credential string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = $1 WHERE email = $2`, credential, email)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireOneRow(res)
}

func (s *UserStore) UpdatePrivileges(ctx context.Context, email string, privs []string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET privileges = $1 WHERE email = $2`, joinPrivileges(privs), email)
	if err != nil {
		return fmt.Errorf("update privileges: %w", err)
	}
	return requireOneRow(res)
}

func (s *UserStore) Delete(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireOneRow(res)
}

func (s *UserStore) Get(ctx context.Context, email string) (models.User, error) {
	var user models.User
	var privs string
	err := s.db.QueryRowContext(ctx,
		`SELECT email, password, privileges FROM users WHERE email = $1`, email).
		Scan(&user.Email, &user.Password, &privs)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	user.Privileges = splitPrivileges(privs)
	return user, nil
}

func (s *UserStore) GetPassword(ctx context.Context, email string) (string, error) {
	var credential string
	err := s.db.QueryRowContext(ctx,
		`SELECT password FROM users WHERE email = $1`, email).Scan(&credential)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get password: %w", err)
	}
	return credential, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, password, privileges FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var privs string
		if err := rows.Scan(&user.Email, &user.Password, &privs); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.Privileges = splitPrivileges(privs)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

type AliasStore struct {
	db *sql.DB
}

func NewAliasStore(db *sql.DB) *AliasStore {
	return &AliasStore{db: db}
}

func (s *AliasStore) Insert(ctx context.Context, alias models.Alias) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (source, destination) VALUES ($1, $2)`,
		alias.Source, strings.Join(alias.Destinations, ","))
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

func (s *AliasStore) Update(ctx context.Context, source string, destinations []string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE aliases SET destination = $1 WHERE source = $2`,
		strings.Join(destinations, ","), source)
	if err != nil {
		return fmt.Errorf("update alias: %w", err)
	}
	return requireOneRow(res)
}

func (s *AliasStore) Delete(ctx context.Context, source string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM aliases WHERE source = $1`, source)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	return requireOneRow(res)
}

func (s *AliasStore) Get(ctx context.Context, source string) (models.Alias, error) {
	var alias models.Alias
	var dest string
	err := s.db.QueryRowContext(ctx,
		`SELECT source, destination FROM aliases WHERE source = $1`, source).
		Scan(&alias.Source, &dest)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alias{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Alias{}, fmt.Errorf("get alias: %w", err)
	}
	alias.Destinations = splitDestinations(dest)
	return alias, nil
}

func (s *AliasStore) List(ctx context.Context) ([]models.Alias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, destination FROM aliases ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []models.Alias
	for rows.Next() {
		var alias models.Alias
		var dest string
		if err := rows.Scan(&alias.Source, &dest); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		alias.Destinations = splitDestinations(dest)
		aliases = append(aliases, alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Source < aliases[j].Source })
	return aliases, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func joinPrivileges(privs []string) string {
	return strings.Join(privs, "\n")
}

func splitPrivileges(value string) []string {
	var privs []string
	for _, p := range strings.Split(value, "\n") {
		if strings.TrimSpace(p) != "" {
			privs = append(privs, p)
		}
	}
	return privs
}

func splitDestinations(value string) []string {
	var dests []string
	for _, d := range strings.Split(value, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			dests = append(dests, d)
		}
	}
	return dests
}
