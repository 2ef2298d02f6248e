package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"subsync/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const tokenContextKey = "user"

var ErrNoVerificationKey = errors.New("either JWT_SECRET or JWKS_URL must be set")

// JWTAuth verifies bearer tokens and stores the numeric "sub" claim on the
// request context as the user id. Tokens are issued elsewhere.
type JWTAuth struct {
	jwks   *keyfunc.JWKS
	config echojwt.Config
}

// NewJWTAuth verifies against the JWKS at jwksURL when set, else against the
// HS256 secret.
func NewJWTAuth(secret, jwksURL string, logger *zap.Logger) (*JWTAuth, error) {
	auth := &JWTAuth{}
	cfg := echojwt.Config{
		ContextKey: tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return &jwt.RegisteredClaims{}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", "Invalid or missing token", nil))
		},
	}

	switch {
	case jwksURL != "":
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks refresh failed", zap.String("url", jwksURL), zap.Error(err))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load jwks from %s: %w", jwksURL, err)
		}
		auth.jwks = jwks
		cfg.KeyFunc = jwks.Keyfunc
	case secret != "":
		cfg.SigningKey = []byte(secret)
		cfg.SigningMethod = echojwt.AlgorithmHS256
	default:
		return nil, ErrNoVerificationKey
	}

	auth.config = cfg
	return auth, nil
}

// Middleware returns the token check followed by the user id extraction.
func (a *JWTAuth) Middleware() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(a.config)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(userFromToken(next))
	}
}

// Close stops the background JWKS refresh.
func (a *JWTAuth) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

func userFromToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get(tokenContextKey).(*jwt.Token)
		if !ok {
			return common.SendUnauthorizedError(c)
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return common.SendUnauthorizedError(c)
		}
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || userID <= 0 {
			return common.SendUnauthorizedError(c)
		}

		ctx := common.WithUserID(c.Request().Context(), userID)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
