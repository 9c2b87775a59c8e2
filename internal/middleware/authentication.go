package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

// AuthenticationErrorTitle is the title of error responses to requests without a valid token.
const AuthenticationErrorTitle = "MiddlewareAuthenticationError"

func NewAuthentication(logger *slog.Logger, secret []byte) AuthenticationMiddleware {
	return AuthenticationMiddleware{
		logger: logger,
		secret: secret,
	}
}

// AuthenticationMiddleware only lets requests through that carry a bearer token signed with the
// secret shared with the billing middleware. Tokens have to expire.
type AuthenticationMiddleware struct {
	logger *slog.Logger
	secret []byte
}

func (m AuthenticationMiddleware) TokenAuthentication(c *gin.Context) {
	if len(m.secret) == 0 {
		m.logger.ErrorContext(c.Request.Context(), "JWT secret not set")
		m.abort(c, "JWT secret not set")
		return
	}

	err := parseRequest(c.Request, m.secret)
	if err != nil {
		m.logger.InfoContext(c.Request.Context(), "Token not valid", "error", err)
		m.abort(c, "token not valid: %v", err)
		return
	}

	c.Next()
}

func (m AuthenticationMiddleware) abort(c *gin.Context, format string, a ...any) {
	err := errdef.WithTitle(errdef.NewUnauthorized(format, a...), AuthenticationErrorTitle)
	_ = c.Error(err)
	c.Abort()
}

func parseRequest(request *http.Request, secret []byte) error {
	_, err := jwt.ParseRequest(
		request,
		jwt.WithKey(jwa.HS256, secret),
		jwt.WithHeaderKey("Authorization"),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	)
	return err
}
