package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims carries the identity extracted from a verified access token.
type Claims struct {
	UserID string
	Roles  []string
}

// Verifier parses and validates HMAC-signed access tokens.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Parse verifies the token signature and claims and returns the caller identity.
func (v Verifier) Parse(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, errors.New("auth: empty token")
	}
	if len(v.Secret) == 0 {
		return Claims{}, errors.New("auth: verifier has no secret")
	}

	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return Claims{}, fmt.Errorf("auth: malformed token: %w", err)
	}
	algorithm := tokenAlgorithm(msg)

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, v.Secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("auth: parse token: %w", err)
	}

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	validator := TokenValidator{
		Issuer:    v.Issuer,
		Audience:  v.Audience,
		ClockSkew: v.ClockSkew,
		Algorithm: jwa.HS256,
	}
	if err := validator.Validate(tok, algorithm, now); err != nil {
		return Claims{}, err
	}

	subject := strings.TrimSpace(tok.Subject())
	if subject == "" {
		return Claims{}, errors.New("auth: token missing subject")
	}
	return Claims{UserID: subject, Roles: rolesClaim(tok)}, nil
}

func tokenAlgorithm(msg *jws.Message) jwa.SignatureAlgorithm {
	for _, sig := range msg.Signatures() {
		if alg := sig.ProtectedHeaders().Algorithm(); alg != "" {
			return alg
		}
	}
	return ""
}

func rolesClaim(tok jwt.Token) []string {
	raw, ok := tok.Get("roles")
	if !ok {
		return nil
	}
	switch values := raw.(type) {
	case []string:
		return values
	case []any:
		roles := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				roles = append(roles, s)
			}
		}
		return roles
	case string:
		if strings.TrimSpace(values) == "" {
			return nil
		}
		return []string{values}
	default:
		return nil
	}
}
