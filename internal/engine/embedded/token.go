package embedded

import (
	"context"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/brokerjohn/internal/engine"
)

// IssueToken firma un access token HS256 con las claims de sujeto dadas,
// atado al issuer del tenant.
func (e *Engine) IssueToken(clientID string, subject engine.Claims) (string, time.Duration, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"iss": e.issuerFor(clientID),
		"iat": now.Unix(),
		"exp": now.Add(e.cfg.AccessTTL).Unix(),
	}
	for k, v := range subject {
		claims[k] = v
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(e.cfg.Secret))
	if err != nil {
		return "", 0, err
	}
	return signed, e.cfg.AccessTTL, nil
}

// VerifyToken valida firma, exp/nbf (con tolerancia chica) e issuer del
// tenant. Cualquier falla colapsa en engine.ErrInvalidToken: el motivo
// real no sale de acá.
func (e *Engine) VerifyToken(ctx context.Context, token string, b engine.IssuerBinding) (engine.Claims, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		return []byte(e.cfg.Secret), nil
	}

	tok, err := jwtv5.Parse(token, keyfunc,
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, engine.ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, engine.ErrInvalidToken
	}

	expected := b.Issuer
	if expected == "" {
		expected = e.issuerFor(b.ClientID)
	}
	if iss, _ := claims["iss"].(string); iss != expected {
		return nil, engine.ErrInvalidToken
	}

	out := make(engine.Claims, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}
