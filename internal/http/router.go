package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/freshmarket/freshmarket-api/internal/auth"
	"github.com/freshmarket/freshmarket-api/internal/cart"
	"github.com/freshmarket/freshmarket-api/internal/config"
	"github.com/freshmarket/freshmarket-api/internal/httputil"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/order"
	"github.com/freshmarket/freshmarket-api/internal/product"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// Handlers groups the per-domain HTTP handlers the router mounts.
type Handlers struct {
	Auth    *auth.Handler
	Product *product.Handler
	Cart    *cart.Handler
	Order   *order.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, guard *auth.Guard, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first. Credentials are required because the
	// session travels in a cookie.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		log.Println("Swagger UI disabled (production mode)")
	}

	// User routes
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/signup", h.Auth.Signup)
		r.Post("/verify-email", h.Auth.VerifyEmail)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password/{token}", h.Auth.ResetPassword)
		r.Get("/check-auth", h.Auth.CheckAuth)

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect)
			r.Patch("/update-profile", h.Auth.UpdateProfile)
		})
	})

	// Product routes: browsing is public, writes are session-gated
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.Product.List)
		r.Get("/categories", h.Product.Categories)
		r.Get("/category/{category}", h.Product.ListByCategory)
		r.Get("/{id}", h.Product.Get)

		r.Group(func(r chi.Router) {
			r.Use(guard.Protect)
			r.Post("/addproduct", h.Product.Create)
			r.Put("/{id}", h.Product.Update)
			r.With(auth.RequireRole(user.RoleAdmin)).Delete("/{id}", h.Product.Delete)
		})
	})

	// Cart routes
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(guard.Protect)
		r.Post("/add", h.Cart.Add)
		r.Get("/", h.Cart.List)
		r.Put("/{id}", h.Cart.Update)
		r.Delete("/{id}", h.Cart.Remove)
	})

	// Order routes
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(guard.Protect)
		r.Post("/createorder", h.Order.Create)
		r.With(auth.RequireRole(user.RoleAdmin)).Get("/", h.Order.ListAll)
		r.Get("/user/{userId}", h.Order.ListByUser)
		r.Get("/{id}", h.Order.Get)
		r.With(auth.RequireRole(user.RoleAdmin, user.RoleFarmer)).Put("/{id}/status", h.Order.UpdateStatus)
		r.With(auth.RequireRole(user.RoleAdmin)).Delete("/{id}", h.Order.Delete)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
