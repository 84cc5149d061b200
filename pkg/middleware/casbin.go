package middleware

import (
	"net/http"

	"CampusNotify/internal/auth"
	"CampusNotify/internal/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

var defaultGroupings = [][]string{
	{"superadmin", "staff"},
	{"admin", "staff"},
	{"director", "staff"},
	{"coordinator", "staff"},
	{"school_management", "staff"},
	{"teacher", "staff"},
	{"staff", "member"},
	{"student", "member"},
	{"guardian", "member"},
}

var defaultPolicies = [][]string{
	{"staff", "/api/messages", "POST"},
	{"member", "/api/messages", "GET"},
	{"member", "/api/messages/:id", "(GET)|(DELETE)"},
	{"member", "/api/messages/:id/read", "POST"},
	{"member", "/api/devices", "POST"},
	{"member", "/api/devices/:token", "DELETE"},
	{"superadmin", "/api/messages/process-scheduled", "POST"},
	{"admin", "/api/messages/process-scheduled", "POST"},
}

// NewEnforcer builds the RBAC enforcer. Policies come from RBAC_POLICY when
// it is set and from the built-in table otherwise.
func NewEnforcer(cfg *config.AppConfig, logger *zap.Logger) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	if cfg.RBACPolicyPath != "" {
		enf, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(cfg.RBACPolicyPath))
		if err != nil {
			return nil, err
		}
		logger.Info("loaded RBAC policy file", zap.String("path", cfg.RBACPolicyPath))
		return enf, nil
	}

	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := enf.AddGroupingPolicies(defaultGroupings); err != nil {
		return nil, err
	}
	if _, err := enf.AddPolicies(defaultPolicies); err != nil {
		return nil, err
	}
	return enf, nil
}

// CasbinMiddleware enforces RBAC on the role carried by the JWT claims.
func CasbinMiddleware(enf *casbin.Enforcer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*auth.JWTClaims)
			if !ok || claims == nil {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Unauthorized: missing user claims"})
			}
			role := claims.Identity().Role
			obj := c.Request().URL.Path
			act := c.Request().Method
			allowed, err := enf.Enforce(string(role), obj, act)
			if err != nil {
				logger.Error("casbin enforce error", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "RBAC system error"})
			}
			if !allowed {
				logger.Debug("casbin denied",
					zap.String("role", string(role)),
					zap.String("obj", obj),
					zap.String("act", act))
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: insufficient permissions"})
			}
			return next(c)
		}
	}
}
