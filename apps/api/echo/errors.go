package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/listing"
	"github.com/trezcool/schoolhealth/core/status"
	"github.com/trezcool/schoolhealth/core/user"
	"github.com/trezcool/schoolhealth/services/notify"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errMissingToken  = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errTokenExpired  = echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
	errBusy          = echo.NewHTTPError(http.StatusConflict, "request already in progress")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
// Notifications collected before the failure are sent along with the error.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, fErr := range core.TranslateValidationErrors(origErr, translator) {
				fldErrs[fErr.Field] = fErr.Error
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.APIError:
			code = origErr.Status
			if code < http.StatusBadRequest {
				code = http.StatusBadGateway
			}
			message = core.MessageOf(origErr)
		default:
			switch {
			case isBadRequest(origErr):
				code = http.StatusBadRequest
				message = core.MessageOf(err)
			case origErr == form.ErrSubmitting:
				code = errBusy.Code
				message = errBusy.Message
			case origErr == user.ErrNoChild:
				code = http.StatusNotFound
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				if claims, cErr := getContextClaims(ctx); cErr == nil {
					logger.Error(msg, errors.Wrap(err, msg), claims.User())
				} else {
					logger.Error(msg, errors.Wrap(err, msg))
				}

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		body := echo.Map{}
		if m, ok := message.(string); ok {
			body["error"] = m
		} else {
			body["errors"] = message
		}
		if c, ok := ctx.Get(contextCollectorKey).(*notify.Collector); ok {
			if n := c.Notifications(); len(n) > 0 {
				body["notifications"] = n
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// isBadRequest reports the errors caused by the request itself.
func isBadRequest(err error) bool {
	switch err {
	case listing.ErrUnknownSort,
		form.ErrUnknownField,
		status.ErrUnknownVerb,
		status.ErrIllegalTransition,
		status.ErrMissingStatusLabel,
		user.ErrUnknownRole,
		user.ErrNotChild,
		user.ErrNoRecipients,
		user.ErrNoEmailOnUser:
		return true
	}
	return false
}
