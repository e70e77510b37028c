package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionReplaced = errors.New("session replaced by another login")
	ErrUnknownUser     = errors.New("unknown user")
)

// Result é o resultado de comparar o token persistido com o do cookie
type Result int

const (
	Invalid Result = iota
	Valid
	Adoptable
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Adoptable:
		return "adoptable"
	}
	return "invalid"
}

// revokedPrefix marca um token encerrado (logout, logout forçado ou sessão duplicada).
// Diferente do vazio, um token revogado nunca é adotado; só um login novo o substitui.
const revokedPrefix = "revoked:"

// Revoked indica se o valor persistido é um marcador de revogação
func Revoked(persisted string) bool { return strings.HasPrefix(persisted, revokedPrefix) }

// Classify: igual é Valid; persistido vazio é Adoptable; qualquer outra diferença,
// incluindo persistido revogado, é Invalid. Cookie sem token nunca é autêntico.
func Classify(persisted, presented string) Result {
	switch {
	case presented == "", Revoked(presented), Revoked(persisted):
		return Invalid
	case persisted == "":
		return Adoptable
	case subtle.ConstantTimeCompare([]byte(persisted), []byte(presented)) == 1:
		return Valid
	}
	return Invalid
}

// Store persiste o token corrente de cada usuário
type Store interface {
	Token(ctx context.Context, userID string) (string, error)
	SetToken(ctx context.Context, userID, token string) error
	// Adopt grava token só se o persistido ainda estiver vazio
	Adopt(ctx context.Context, userID, token string) (bool, error)
	// RevokeIf troca o persistido por marker só se ainda for expected; expected vazio troca sempre
	RevokeIf(ctx context.Context, userID, expected, marker string) error
}

// Guard garante no máximo uma sessão de navegador autêntica por conta
type Guard struct {
	Store    Store
	Log      *zap.Logger
	NewToken func() string
}

func NewGuard(s Store, log *zap.Logger) *Guard {
	return &Guard{Store: s, Log: log, NewToken: uuid.NewString}
}

func (g *Guard) marker() string { return revokedPrefix + g.NewToken() }

// Issue gera e persiste um token novo; o anterior (ou a revogação) deixa de valer
func (g *Guard) Issue(ctx context.Context, userID string) (string, error) {
	tok := g.NewToken()
	if err := g.Store.SetToken(ctx, userID, tok); err != nil {
		return "", fmt.Errorf("persist session token: %w", err)
	}
	return tok, nil
}

// Authenticate confere o token do cookie. Adoptable grava o token antes de aceitar;
// Invalid revoga a sessão persistida e devolve ErrSessionReplaced, exigindo novo login.
func (g *Guard) Authenticate(ctx context.Context, userID, token string) (Result, error) {
	persisted, err := g.Store.Token(ctx, userID)
	if err != nil {
		return Invalid, err
	}

	res := Classify(persisted, token)
	switch res {
	case Valid:
		return Valid, nil
	case Adoptable:
		ok, err := g.Store.Adopt(ctx, userID, token)
		if err != nil {
			return Invalid, fmt.Errorf("adopt session token: %w", err)
		}
		if ok {
			g.Log.Info("session token adopted", zap.String("user_id", userID))
			return Adoptable, nil
		}
		// outra requisição adotou ou logou antes; reavalia contra o valor novo
		if persisted, err = g.Store.Token(ctx, userID); err != nil {
			return Invalid, err
		}
		if Classify(persisted, token) == Valid {
			return Valid, nil
		}
	}

	if token != "" && !Revoked(persisted) {
		if err := g.Store.RevokeIf(ctx, userID, persisted, g.marker()); err != nil {
			return Invalid, fmt.Errorf("force logout: %w", err)
		}
		g.Log.Warn("duplicate session rejected", zap.String("user_id", userID))
	}
	return Invalid, ErrSessionReplaced
}

// ForceLogout revoga o token incondicionalmente (ação administrativa)
func (g *Guard) ForceLogout(ctx context.Context, userID string) error {
	if err := g.Store.RevokeIf(ctx, userID, "", g.marker()); err != nil {
		return fmt.Errorf("force logout: %w", err)
	}
	g.Log.Info("session force logout", zap.String("user_id", userID))
	return nil
}

// Logout encerra a sessão apenas se token ainda for o corrente
func (g *Guard) Logout(ctx context.Context, userID, token string) error {
	if token == "" {
		return nil
	}
	if err := g.Store.RevokeIf(ctx, userID, token, g.marker()); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
