package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xue-yuan/dionysus/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Users       *handlers.UsersHandler
	Ingredients *handlers.IngredientsHandler
	Cocktails   *handlers.CocktailsHandler
	Favorites   *handlers.FavoritesHandler
	// Gate admits requests carrying a verified bearer credential.
	Gate fiber.Handler
	// CredentialLimiter guards register and login.
	CredentialLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	api := app.Group("/api")
	api.Get("/heartbeat", cfg.Health.Heartbeat)
	api.Get("/health/live", cfg.Health.Live)
	api.Get("/health/ready", cfg.Health.Ready)
	api.Get("/health/metrics", cfg.Health.Metrics)

	v1 := api.Group("/v1")

	limited := passthrough(cfg.CredentialLimiter)
	user := v1.Group("/user")
	user.Get("/", cfg.Health.Heartbeat)
	user.Post("/register", limited, cfg.Users.Register)
	user.Post("/login", limited, cfg.Users.Login)
	user.Get("/test_user", cfg.Gate, cfg.Users.TestUser)
	user.Get("/me", cfg.Gate, cfg.Users.Me)
	user.Post("/token/refresh", cfg.Gate, cfg.Users.Refresh)
	user.Post("/logout", cfg.Gate, cfg.Users.Logout)

	ingredients := v1.Group("/ingredients")
	ingredients.Get("/", cfg.Ingredients.List)
	ingredients.Get("/:id", cfg.Ingredients.Get)
	ingredients.Post("/", cfg.Gate, cfg.Ingredients.Create)
	ingredients.Patch("/:id", cfg.Gate, cfg.Ingredients.Rename)
	ingredients.Delete("/:id", cfg.Gate, cfg.Ingredients.Delete)

	cocktails := v1.Group("/cocktails")
	cocktails.Get("/", cfg.Cocktails.List)
	cocktails.Get("/:id", cfg.Cocktails.Get)
	cocktails.Post("/", cfg.Gate, cfg.Cocktails.Create)
	cocktails.Post("/match", cfg.Cocktails.Match)
	cocktails.Patch("/:id", cfg.Gate, cfg.Cocktails.Update)
	cocktails.Delete("/:id", cfg.Gate, cfg.Cocktails.Delete)

	v1.Get("/tags", cfg.Cocktails.Tags)

	favorites := v1.Group("/favorites", cfg.Gate)
	favorites.Get("/", cfg.Favorites.List)
	favorites.Get("/:id", cfg.Favorites.Status)
	favorites.Put("/:id", cfg.Favorites.Add)
	favorites.Post("/:id", cfg.Favorites.Add)
	favorites.Delete("/:id", cfg.Favorites.Remove)
}

func passthrough(h fiber.Handler) fiber.Handler {
	if h != nil {
		return h
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}
