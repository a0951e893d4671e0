package interceptors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess marks access tokens. Tokens of any other type are refused.
const TokenTypeAccess = "access"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid or expired access token")
)

// Claims is the payload of an access token. The subject is the user id.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// ParseAccessToken verifies an HS256 access token signed with secret.
func ParseAccessToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if !token.Valid || claims.TokenType != TokenTypeAccess || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// AuthInterceptor requires a valid bearer token on every procedure except
// the public ones and stores its claims on the context.
type AuthInterceptor struct {
	secret []byte
	public map[string]bool
}

func NewAuthInterceptor(secret []byte, publicProcedures ...string) *AuthInterceptor {
	public := make(map[string]bool, len(publicProcedures))
	for _, p := range publicProcedures {
		public[p] = true
	}
	return &AuthInterceptor{secret: secret, public: public}
}

func (i *AuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient || i.public[req.Spec().Procedure] {
			return next(ctx, req)
		}
		ctx, err := i.authenticate(ctx, req.Header().Get("Authorization"))
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *AuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *AuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if i.public[conn.Spec().Procedure] {
			return next(ctx, conn)
		}
		ctx, err := i.authenticate(ctx, conn.RequestHeader().Get("Authorization"))
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (i *AuthInterceptor) authenticate(ctx context.Context, header string) (context.Context, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return ctx, connect.NewError(connect.CodeUnauthenticated, errMissingToken)
	}
	if len(i.secret) == 0 {
		return ctx, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
	}
	claims, err := ParseAccessToken(i.secret, strings.TrimSpace(raw))
	if err != nil {
		return ctx, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
	}
	ctx = WithUserID(ctx, claims.Subject)
	ctx = context.WithValue(ctx, userEmailKey, claims.Email)
	ctx = context.WithValue(ctx, userRoleKey, claims.Role)
	return ctx, nil
}
