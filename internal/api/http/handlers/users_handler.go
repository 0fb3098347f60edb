package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/xue-yuan/dionysus/internal/api/dto"
	"github.com/xue-yuan/dionysus/internal/auth"
	"github.com/xue-yuan/dionysus/internal/domain"
)

// Accounts is the user and token surface the handler needs.
type Accounts interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.AuthToken, error)
	Refresh(ctx context.Context, identity *auth.Identity) (*domain.AuthToken, error)
	Logout(ctx context.Context, identity *auth.Identity) error
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// UsersHandler exposes account and token endpoints.
type UsersHandler struct {
	accounts Accounts
}

// NewUsersHandler constructs handler.
func NewUsersHandler(accounts Accounts) *UsersHandler {
	return &UsersHandler{accounts: accounts}
}

// Register handles POST /api/v1/user/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /api/v1/user/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	token, err := h.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTokenResponse(token)})
}

// TestUser handles GET /api/v1/user/test_user by echoing the verified identity.
func (h *UsersHandler) TestUser(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.IdentityResponse{UserID: identity.UserID, ExpiresAt: identity.ExpiresAt}})
}

// Me handles GET /api/v1/user/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.Me(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Refresh handles POST /api/v1/user/token/refresh.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	token, err := h.accounts.Refresh(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTokenResponse(token)})
}

// Logout handles POST /api/v1/user/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Logout(c.UserContext(), identity); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
