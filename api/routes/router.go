package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avendano-dev/storefront-backend/api/controllers"
	"github.com/avendano-dev/storefront-backend/api/middleware"
	"github.com/avendano-dev/storefront-backend/internal/cart"
	checkoutsvc "github.com/avendano-dev/storefront-backend/internal/checkout"
	"github.com/avendano-dev/storefront-backend/internal/users"
	"github.com/avendano-dev/storefront-backend/pkg/config"
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/avendano-dev/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	profileService users.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Put("/items", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items", controllers.CartRemoveItem(cartService, logg))
			r.Put("/shipping", controllers.CartSetShipping(cartService, logg))
			r.Post("/discount", controllers.CartApplyDiscount(cartService, logg))
			r.Delete("/discount", controllers.CartRemoveDiscount(cartService, logg))
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/profile", controllers.ProfileFetch(profileService, logg))
			r.Put("/profile", controllers.ProfileUpdate(profileService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutFetch(checkoutService, logg))
			r.Post("/reset", controllers.CheckoutReset(checkoutService, logg))
			r.Put("/shipping-address", controllers.CheckoutShippingAddress(checkoutService, logg))
			r.Put("/billing-address", controllers.CheckoutBillingAddress(checkoutService, logg))
			r.Post("/billing-sync", controllers.CheckoutBillingSync(checkoutService, logg))
			r.Put("/shipping-method", controllers.CheckoutShippingMethod(checkoutService, logg))
			r.Put("/payment-method", controllers.CheckoutPaymentMethod(checkoutService, logg))
			r.Put("/notes", controllers.CheckoutNotes(checkoutService, logg))
			r.Post("/addresses/default", controllers.CheckoutLoadDefaults(checkoutService, logg))
			r.Post("/step/next", controllers.CheckoutNextStep(checkoutService, logg))
			r.Post("/step/previous", controllers.CheckoutPreviousStep(checkoutService, logg))
			r.Put("/step", controllers.CheckoutGoToStep(checkoutService, logg))
			r.Get("/validate", controllers.CheckoutValidate(checkoutService, logg))
			r.Post("/submit", controllers.CheckoutSubmit(checkoutService, logg))
		})
	})

	return r
}
