package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/metrics"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/middleware"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/recipe"
)

type RouterOptions struct {
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Verifier    middleware.TokenVerifier
	CORSOrigins []string
	// LoginRateLimit is the number of login attempts per IP per minute.
	LoginRateLimit int
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.HeaderCorrelationID},
		ExposedHeaders: []string{middleware.HeaderCorrelationID, "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(chimw.StripSlashes)

	r.Get("/health", h.Health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	loginLimit := opts.LoginRateLimit
	if loginLimit <= 0 {
		loginLimit = 10
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Verifier))

		r.Route("/auth/token", func(r chi.Router) {
			r.With(httprate.LimitByIP(loginLimit, time.Minute)).Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.Register)
			r.Get("/me", h.Me)
			r.Post("/set_password", h.SetPassword)
			r.Get("/subscriptions", h.Subscriptions)
			r.Get("/{id}", h.GetUser)
			r.Post("/{id}/subscribe", h.Subscribe)
			r.Delete("/{id}/subscribe", h.Unsubscribe)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.ListTags)
			r.Post("/", h.CreateTag)
			r.Get("/{id}", h.GetTag)
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", h.ListIngredients)
			r.Get("/{id}", h.GetIngredient)
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", h.ListRecipes)
			r.Post("/", h.CreateRecipe)
			r.Get("/download_shopping_cart", h.DownloadShoppingCart)
			r.Get("/{id}", h.GetRecipe)
			r.Put("/{id}", h.UpdateRecipe)
			r.Patch("/{id}", h.UpdateRecipe)
			r.Delete("/{id}", h.DeleteRecipe)
			r.Post("/{id}/favorite", h.addRelation(recipe.Favorites))
			r.Delete("/{id}/favorite", h.removeRelation(recipe.Favorites))
			r.Post("/{id}/shopping_cart", h.addRelation(recipe.ShoppingCart))
			r.Delete("/{id}/shopping_cart", h.removeRelation(recipe.ShoppingCart))
		})
	})

	return r
}
