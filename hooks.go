package nest

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized is returned by the built-in authentication hooks. Match it
// with errors.Is in a formatter to customise the response.
var ErrUnauthorized = &ApplicationError{
	Code:    "unauthorized",
	Status:  http.StatusUnauthorized,
	Message: "unauthorized",
}

// TokenAuthConfig configures the TokenAuth hook. Exactly one of Secret and
// Hash should be set.
type TokenAuthConfig struct {
	Param  string // default: "token"
	Secret string // compared in constant time
	Hash   []byte // bcrypt hash of the token
	Err    error  // default: ErrUnauthorized
}

// TokenAuth returns a post-validation hook that rejects requests whose
// validated token parameter does not match. Declare the parameter on the
// namespace schema so a missing token fails validation before the hook
// runs.
func TokenAuth(cfg TokenAuthConfig) Hook {
	if cfg.Param == "" {
		cfg.Param = "token"
	}
	if cfg.Err == nil {
		cfg.Err = ErrUnauthorized
	}
	secret := []byte(cfg.Secret)

	return func(c *Context) error {
		if !c.Validated() {
			return &InternalError{Err: errors.New("token auth: registered as a pre-validation hook")}
		}
		token := []byte(c.Params().String(cfg.Param))
		if len(token) == 0 {
			return cfg.Err
		}

		if cfg.Hash != nil {
			if err := bcrypt.CompareHashAndPassword(cfg.Hash, token); err != nil {
				return cfg.Err
			}
			return nil
		}
		if len(secret) == 0 || subtle.ConstantTimeCompare(token, secret) != 1 {
			return cfg.Err
		}
		return nil
	}
}

// HashToken returns the bcrypt hash of token for TokenAuthConfig.Hash.
func HashToken(token string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
}
