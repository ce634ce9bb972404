package nest

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWTAuth hook.
type JWTConfig struct {
	Secret  []byte   // HMAC signing key
	Header  string   // default: "Authorization", read as "Bearer <token>"
	Issuer  string   // required issuer when set
	Methods []string // accepted algorithms (default: HS256)
	Err     error    // default: ErrUnauthorized
}

// JWTAuth returns a hook that verifies an HMAC-signed bearer token and
// stores its claims on the request. Handlers read them with Claims.
func JWTAuth(cfg JWTConfig) Hook {
	if cfg.Header == "" {
		cfg.Header = "Authorization"
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{jwt.SigningMethodHS256.Alg()}
	}
	if cfg.Err == nil {
		cfg.Err = ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(cfg.Methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cfg.Secret, nil
	}

	return func(c *Context) error {
		raw := c.Header(cfg.Header)
		if cfg.Header == "Authorization" {
			var ok bool
			raw, ok = strings.CutPrefix(raw, "Bearer ")
			if !ok {
				return cfg.Err
			}
		}
		if raw == "" {
			return cfg.Err
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(raw, claims, keyFunc)
		if err != nil || !token.Valid {
			if ae, ok := cfg.Err.(*ApplicationError); ok {
				return ae.Wrap(err)
			}
			return cfg.Err
		}

		SetValue(c, claims)
		return nil
	}
}

// Claims returns the claims stored by JWTAuth.
func Claims(c *Context) (jwt.MapClaims, bool) {
	return GetValue[jwt.MapClaims](c.Context())
}
