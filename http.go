package accounts

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// HeaderAccessToken is the legacy header clients may use instead of a
// bearer Authorization header.
const HeaderAccessToken = "x-access-token"

// APIResponse is the envelope every operation responds with. Success
// is the business outcome marker; Status repeats the HTTP code so
// clients that lose the transport status can still branch on it.
type APIResponse struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RespondData writes a success envelope
func RespondData(ctx router.Context, status int, message string, data any) error {
	return ctx.JSON(status, APIResponse{
		Status:  status,
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondError maps a domain error to a failure envelope. Business and
// auth failures stay in the 400 range; only store or notifier
// unavailability surfaces as 5xx.
func RespondError(ctx router.Context, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	if status >= http.StatusInternalServerError {
		logger.Error(
			"request failed category=%s text_code=%s details=%s",
			richErr.Category,
			richErr.TextCode,
			print.MaybePrettyJSON(richErr.Metadata),
		)
	} else {
		logger.Debug("request rejected category=%s text_code=%s", richErr.Category, richErr.TextCode)
	}

	return ctx.JSON(status, APIResponse{
		Status:  status,
		Success: false,
		Message: richErr.Message,
	})
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryOperation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// TokenFromRequest extracts the raw token: Authorization bearer first,
// then the legacy x-access-token header, then the link query param.
func TokenFromRequest(ctx router.Context) string {
	if h := ctx.Header("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if h := ctx.Header(HeaderAccessToken); h != "" {
		return h
	}

	return ctx.Query("token", "")
}

// MaintenanceGate short circuits the request with ErrMaintenance when
// the switch is on and the operation is not allow listed. First gate
// in every chain.
func MaintenanceGate(ms *MaintenanceSwitch, op Operation, logger Logger) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if err := ms.Check(op); err != nil {
				return RespondError(ctx, logger, err)
			}
			return hf(ctx)
		}
	}
}

// RequireToken verifies the request token against the expected type
// and exposes the decoded claims through Locals and the request
// context. Failure is terminal, the handler never runs.
func RequireToken(tokens TokenService, typ TokenType, logger Logger) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := TokenFromRequest(ctx)
			if raw == "" {
				return RespondError(ctx, logger, ErrTokenMalformed)
			}

			claims, err := tokens.Verify(raw, typ)
			if err != nil {
				return RespondError(ctx, logger, err)
			}

			ctx.Locals(ClaimsLocalsKey, claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return hf(ctx)
		}
	}
}

// RequirePermission gates a route on the ACL matrix using the role
// code carried by the verified session token. Must run after
// RequireToken.
func RequirePermission(acl *AccessControl, resource Resource, action Action, logger Logger) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := GetRouterClaims(ctx, "")
			if !ok {
				return RespondError(ctx, logger, ErrForbidden)
			}

			if err := acl.Authorize(RoleCode(claims.RoleCode), resource, action); err != nil {
				return RespondError(ctx, logger, err)
			}

			return hf(ctx)
		}
	}
}
