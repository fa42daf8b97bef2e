package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/muxdry/storefront-backend/api/controllers"
	"github.com/muxdry/storefront-backend/api/middleware"
	"github.com/muxdry/storefront-backend/internal/auth"
	"github.com/muxdry/storefront-backend/internal/cart"
	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/internal/contact"
	"github.com/muxdry/storefront-backend/internal/favorites"
	"github.com/muxdry/storefront-backend/internal/messages"
	"github.com/muxdry/storefront-backend/internal/orders"
	"github.com/muxdry/storefront-backend/internal/reviews"
	"github.com/muxdry/storefront-backend/internal/users"
	"github.com/muxdry/storefront-backend/pkg/auth/session"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/metrics"
	pkgredis "github.com/muxdry/storefront-backend/pkg/redis"
)

// Redis is the slice of the redis client the HTTP layer needs.
type Redis interface {
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
}

// Dependencies carries everything the router wires into handlers.
// A nil service answers 500 on its routes instead of panicking.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	Pingers        map[string]controllers.Pinger
	Redis          Redis
	Sessions       session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	// Uploads serves locally stored images under Storage.PublicBaseURL.
	Uploads http.Handler

	Auth      auth.Service
	Users     users.Service
	Catalog   catalog.Service
	Cart      cart.Service
	Favorites favorites.Service
	Orders    orders.Service
	Messages  messages.Service
	Reviews   reviews.Service
	Contact   contact.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	maxUpload := cfg.Storage.MaxUploadBytes()

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewRateLimitPolicy(
		"register",
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.RegisterIPLimit,
		0,
	)
	contactPolicy := middleware.NewRateLimitPolicy(
		"contact",
		cfg.RateLimit.ContactWindow,
		cfg.RateLimit.ContactIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if prefix := strings.TrimRight(cfg.Storage.PublicBaseURL, "/"); deps.Uploads != nil && strings.HasPrefix(prefix, "/") {
		r.Method(http.MethodGet, prefix+"/*", http.StripPrefix(prefix, deps.Uploads))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.PublicRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.PublicRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/home", controllers.CatalogHome(deps.Catalog, logg))
			r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
			r.Get("/categories/{slug}", controllers.CatalogCategory(deps.Catalog, logg))
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
			r.Get("/products/{slug}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/products/{slug}/reviews", controllers.ProductReviews(deps.Catalog, deps.Reviews, logg))
		})

		r.With(middleware.PublicRateLimit(contactPolicy, deps.Redis, logg)).Post("/contact", controllers.ContactSubmit(deps.Contact, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.UserRateLimit(deps.Redis, cfg.RateLimit.APIUserLimit, cfg.RateLimit.APIWindow, logg))
			r.Use(middleware.Idempotency(deps.Redis, cfg.RateLimit.IdempotencyTTL, logg))

			r.Route("/me", func(r chi.Router) {
				r.Get("/", controllers.MeProfile(deps.Users, logg))
				r.Patch("/", controllers.MeUpdateProfile(deps.Users, logg))
				r.Post("/password", controllers.MeChangePassword(deps.Users, logg))
				r.Get("/badges", controllers.MeBadges(deps.Cart, deps.Orders, deps.Messages, logg))
				r.Get("/messages/unread", controllers.MessagesUnreadForUser(deps.Messages, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", controllers.FavoritesList(deps.Favorites, logg))
				r.Get("/ids", controllers.FavoritesIDs(deps.Favorites, logg))
				r.Post("/", controllers.FavoritesAdd(deps.Favorites, logg))
				r.Delete("/{productId}", controllers.FavoritesRemove(deps.Favorites, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/checkout", controllers.OrdersCheckout(deps.Orders, logg))
				r.Post("/checkout/items/{itemId}", controllers.OrdersCheckoutItem(deps.Orders, logg))
				r.Get("/current", controllers.OrdersListCurrent(deps.Orders, logg))
				r.Get("/history", controllers.OrdersListHistory(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrdersGet(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.OrdersCancel(deps.Orders, logg))
				r.Get("/{orderId}/messages", controllers.MessagesThread(deps.Messages, logg))
				r.Post("/{orderId}/messages", controllers.MessagesSend(deps.Messages, maxUpload, logg))
				r.Get("/{orderId}/messages/unread", controllers.MessagesUnreadForOrder(deps.Messages, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", controllers.ReviewsList(deps.Reviews, logg))
				r.Post("/", controllers.ReviewsSubmit(deps.Reviews, logg))
				r.Patch("/{reviewId}", controllers.ReviewsUpdate(deps.Reviews, logg))
				r.Delete("/{reviewId}", controllers.ReviewsDelete(deps.Reviews, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.AdminOrdersList(deps.Orders, logg))
					r.Patch("/{orderId}/status", controllers.AdminOrdersUpdateStatus(deps.Orders, logg))
					r.Patch("/{orderId}/payment", controllers.AdminOrdersUpdatePayment(deps.Orders, logg))
				})
				r.Get("/messages/unread", controllers.AdminMessagesUnread(deps.Messages, logg))

				r.Post("/categories", controllers.AdminCreateCategory(deps.Catalog, logg))
				r.Put("/categories/{categoryId}", controllers.AdminUpdateCategory(deps.Catalog, logg))
				r.Post("/products", controllers.AdminCreateProduct(deps.Catalog, logg))
				r.Patch("/products/{productId}", controllers.AdminUpdateProduct(deps.Catalog, logg))
				r.Post("/products/{productId}/images", controllers.AdminUploadProductImage(deps.Catalog, maxUpload, logg))

				r.With(middleware.RequireSuperuser(logg)).Post("/users/staff", controllers.AdminGrantStaff(deps.Users, logg))
			})
		})
	})

	return r
}
