package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/xue-yuan/dionysus/internal/auth"
	apperrors "github.com/xue-yuan/dionysus/pkg/util/errorutil"
)

func parseID(c *fiber.Ctx, param string) (int64, error) {
	raw := c.Params(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{param: raw})
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func requireIdentity(c *fiber.Ctx) (*auth.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return nil, apperrors.NewNotAuthenticated()
	}
	return identity, nil
}
