package middleware

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/utils"
)

// RequireRole admits requests whose token role, as stored by JWTProtected, is one of roles.
// Roles compare case-insensitively.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			allowed[role] = struct{}{}
		}
	}

	names := make([]string, 0, len(allowed))
	for role := range allowed {
		names = append(names, role)
	}
	sort.Strings(names)
	required := strings.Join(names, ",")

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; ok {
			return c.Next()
		}
		return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", map[string]string{"role": required})
	}
}

// RequireAdmin guards catalog authoring routes.
func RequireAdmin() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}
