package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhealth/core/prefs"
	"github.com/trezcool/schoolhealth/services/notify"
	"github.com/trezcool/schoolhealth/services/session"
)

const (
	contextClaimsKey    = "userClaims"
	contextCollectorKey = "notifications"

	authScheme = "Bearer"
)

// sessionMiddleware forwards the caller's bearer token to the REST client through the
// request context, along with the collector of the request's notifications and the
// scope of the caller's preferences.
// Tokens are verified with secret when one is configured, only decoded otherwise: the REST
// API verifies them anyway.
func sessionMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx.Request())
			if token == "" {
				return errMissingToken
			}

			var (
				claims *session.Claims
				err    error
			)
			if secret != "" {
				claims, err = session.ParseHS256(token, []byte(secret))
			} else {
				claims, err = session.ParseUnverified(token)
			}
			if err != nil {
				return errInvalidToken
			}
			if claims.Expired() {
				return errTokenExpired
			}

			collector := notify.NewCollector()
			rctx := session.WithToken(ctx.Request().Context(), token)
			rctx = notify.WithCollector(rctx, collector)
			rctx = prefs.WithScope(rctx, claims.User().ID.String())
			ctx.SetRequest(ctx.Request().WithContext(rctx))

			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextCollectorKey, collector)
			return next(ctx)
		}
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get(echo.HeaderAuthorization)
	if len(auth) <= len(authScheme)+1 || !strings.EqualFold(auth[:len(authScheme)], authScheme) {
		return ""
	}
	return strings.TrimSpace(auth[len(authScheme)+1:])
}

func getContextClaims(ctx echo.Context) (*session.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*session.Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}
