package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loomline/storefront-backend/api/controllers"
	analyticscontrollers "github.com/loomline/storefront-backend/api/controllers/analytics"
	ordercontrollers "github.com/loomline/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/loomline/storefront-backend/api/controllers/webhooks"
	"github.com/loomline/storefront-backend/api/middleware"
	"github.com/loomline/storefront-backend/internal/analytics"
	authsvc "github.com/loomline/storefront-backend/internal/auth"
	cartsvc "github.com/loomline/storefront-backend/internal/cart"
	categorysvc "github.com/loomline/storefront-backend/internal/categories"
	checkoutsvc "github.com/loomline/storefront-backend/internal/checkout"
	ordersvc "github.com/loomline/storefront-backend/internal/orders"
	productsvc "github.com/loomline/storefront-backend/internal/products"
	uploadsvc "github.com/loomline/storefront-backend/internal/uploads"
	usersvc "github.com/loomline/storefront-backend/internal/users"
	squarewebhook "github.com/loomline/storefront-backend/internal/webhooks/square"
	"github.com/loomline/storefront-backend/pkg/auth/session"
	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/metrics"
	"github.com/loomline/storefront-backend/pkg/redis"
	"github.com/loomline/storefront-backend/pkg/square"
)

type sessionStore interface {
	session.Resolver
	middleware.SessionStarter
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RouterParams bundles everything the HTTP surface depends on. The API binary
// builds one of these after wiring services; tests fill only what they touch.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Sessions sessionStore
	UserRepo userLoader

	Products   productsvc.Service
	Categories categorysvc.Service
	Cart       cartsvc.Service
	Checkout   checkoutsvc.Service
	Orders     ordersvc.Service
	Users      usersvc.Service
	Auth       authsvc.Service
	Uploads    uploadsvc.Service
	Analytics  analytics.Service

	SquareClient       *square.Client
	SquareWebhook      *squarewebhook.Service
	SquareWebhookGuard *squarewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
		middleware.Metrics(p.HTTPMetrics),
	)

	sessionAuth := middleware.SessionAuth(middleware.SessionAuthParams{
		Sessions: p.Sessions,
		Users:    p.UserRepo,
		JWT:      cfg.JWT,
		Cookie:   cfg.Session,
		Logger:   logg,
	})

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	// Browser-scannable product media. Only the local driver serves from the
	// API process; MinIO exposes its own public URL.
	if strings.EqualFold(cfg.Uploads.Driver, "local") {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.LocalDir)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	r.Post("/webhooks/square", webhookcontrollers.SquareWebhook(p.SquareWebhook, p.SquareClient, p.SquareWebhookGuard, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(sessionAuth)

		r.Get("/public/ping", controllers.PublicPing())

		// Catalog reads are anonymous.
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(p.Products, logg))
			r.Get("/featured", controllers.FeaturedProducts(p.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(p.Products, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(p.Categories, logg))
			r.Get("/{categoryId}", controllers.GetCategory(p.Categories, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).
				Post("/register", controllers.Register(p.Auth, cfg.Session, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).
				Post("/login", controllers.Login(p.Auth, cfg.Session, logg))
			r.Post("/logout", controllers.Logout(p.Auth, cfg.Session, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(logg))
				r.Get("/me", controllers.Me(p.Auth, logg))
				r.Post("/token", controllers.MintToken(p.Auth, logg))
			})
		})

		// The cart mints an anonymous session on first touch.
		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.EnsureSession(p.Sessions, cfg.Session, logg))
			r.Get("/", controllers.GetCart(p.Cart, logg))
			r.Delete("/", controllers.ClearCart(p.Cart, logg))
			r.Post("/items", controllers.AddCartItem(p.Cart, logg))
			r.Patch("/items/{productId}", controllers.UpdateCartItem(p.Cart, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(p.Cart, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Use(middleware.Idempotency(p.Redis, logg))
			r.Get("/ping", controllers.PrivatePing())
			r.Post("/checkout", controllers.Checkout(p.Checkout, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(p.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
				r.Get("/{orderId}/qr", ordercontrollers.QRCode(p.Orders, logg))
				r.Post("/{orderId}/payments", ordercontrollers.Pay(p.Orders, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/", controllers.AdminListUsers(p.Users, logg))
			r.Get("/{userId}", controllers.AdminGetUser(p.Users, logg))
			r.Patch("/{userId}/active", controllers.AdminSetUserActive(p.Users, logg))
			r.Patch("/{userId}/role", controllers.AdminSetUserRole(p.Users, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/ping", controllers.AdminPing())

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminListProducts(p.Products, logg))
				r.Post("/", controllers.AdminCreateProduct(p.Products, logg))
				r.Patch("/{productId}", controllers.AdminUpdateProduct(p.Products, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(p.Products, logg))
			})
			r.Route("/categories", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateCategory(p.Categories, logg))
				r.Patch("/{categoryId}", controllers.AdminUpdateCategory(p.Categories, logg))
				r.Delete("/{categoryId}", controllers.AdminDeleteCategory(p.Categories, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(p.Orders, logg))
				r.Get("/{orderId}", controllers.AdminGetOrder(p.Orders, logg))
				r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))
			})
			r.Route("/uploads", func(r chi.Router) {
				r.Post("/", controllers.AdminUploadFile(p.Uploads, cfg.Uploads, logg))
				r.Get("/", controllers.AdminListUploads(p.Uploads, logg))
				r.Delete("/{fileId}", controllers.AdminDeleteUpload(p.Uploads, logg))
			})
			r.Route("/reports", func(r chi.Router) {
				r.Get("/sales", analyticscontrollers.SalesReport(p.Analytics, logg))
			})
		})
	})

	return r
}
