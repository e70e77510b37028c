package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrUsernameTaken  = errors.New("username already taken")
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
}

// Users é a leitura/escrita de contas usada pelo login
type Users interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, username, passwordHash string) (User, error)
}

// Verify confere a senha; usuário inexistente e senha errada dão o mesmo erro
func Verify(ctx context.Context, users Users, username, password string) (User, error) {
	u, err := users.FindByUsername(ctx, username)
	if errors.Is(err, ErrBadCredentials) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// PostgresUsers lê a tabela users
type PostgresUsers struct{ db *sql.DB }

func NewPostgresUsers(db *sql.DB) *PostgresUsers { return &PostgresUsers{db: db} }

func (p *PostgresUsers) FindByUsername(ctx context.Context, username string) (User, error) {
	u := User{Username: username}
	err := p.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE username=$1`,
		strings.ToLower(username)).Scan(&u.ID, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	return u, err
}

func (p *PostgresUsers) Create(ctx context.Context, username, passwordHash string) (User, error) {
	u := User{ID: uuid.NewString(), Username: strings.ToLower(username), PasswordHash: passwordHash}
	_, err := p.db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash) VALUES ($1,$2,$3)`,
		u.ID, u.Username, u.PasswordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}
