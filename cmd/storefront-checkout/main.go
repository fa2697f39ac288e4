package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/aaravmahajanofficial/storefront-checkout/docs"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/handlers"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/auth"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/cache"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/health"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/telemetry"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/sendgrid"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//	@title						Storefront Checkout API
//	@version					1.0
//	@description				Cart, order and payment reconciliation service.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the JWT.
func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// a missing .env is fine; real deployments inject the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("⚠️ Could not load .env file", slog.String("error", err.Error()))
	}

	// Load config
	cfg := config.MustLoad()

	pricing, err := cfg.Checkout.Pricing()
	if err != nil {
		slog.Error("❌ Invalid checkout pricing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.OTel, cfg.Env)
	if err != nil {
		slog.Error("❌ Error setting up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := repos.DB.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg.Cache)
	locks := repository.NewLockRepo(redisClient)
	rateLimiter := repository.NewRateLimitRepo(redisClient, cfg.RateConfig)
	authorizer := auth.NewStaticAuthorizer()

	jwtKey := []byte(cfg.Security.JWTKey)
	stripeClient := stripe.NewStripeClient(cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)
	sendGridClient := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	notificationService := service.NewNotificationService(repos.Notification, repos.User, sendGridClient)

	// Event fan-out: audit log and customer email always, the event stream when configured
	sinks := []events.Sink{
		events.NewAuditSink(repos.Audit),
		events.NewNotificationSink(notificationService),
	}

	var publisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka))
		sinks = append(sinks, publisher)
	}

	emitter := events.NewEmitter(events.Options{
		Buffer:  cfg.Checkout.EmitterBuffer,
		Workers: cfg.Checkout.EmitterWorkers,
		Timeout: cfg.Checkout.EmitterTimeout,
	}, sinks...)
	emitter.Start()

	userService := service.NewUserService(repos.User, rateLimiter, jwtKey, time.Duration(cfg.Security.JWTExpiryHours)*time.Hour)
	catalogService := service.NewCatalogService(repos.Product, redisCache)
	promoService := service.NewPromoService(repos.Promo)
	cartService := service.NewCartService(repos.Cart, catalogService, locks, redisCache, cfg.Checkout.LockTTL)
	orderService := service.NewOrderService(repos.Order, catalogService, promoService, cartService, locks, rateLimiter, authorizer, emitter, service.OrderOptions{
		Currency: cfg.Checkout.Currency,
		Pricing:  pricing,
		LockTTL:  cfg.Checkout.LockTTL,
	})
	paymentService := service.NewPaymentService(repos.Order, repos.PaymentEvents, catalogService, stripeClient, authorizer, emitter, service.PaymentOptions{
		GatewayTimeout:      cfg.Checkout.GatewayTimeout,
		PaywayWebhookSecret: cfg.Payway.WebhookSecret,
	})

	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService)
	promoHandler := handlers.NewPromoHandler(promoService, cartService, cfg.Checkout.Currency)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey, authorizer)

	healthChecker, err := health.NewHealthHandler(cfg, &health.Endpoints{
		DB:            repos.DB,
		RedisClient:   redisClient,
		StripeEnabled: cfg.Stripe.APIKey != "",
	})
	if err != nil {
		slog.Error("❌ Error setting up health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("POST /api/v1/users/register", userHandler.Register())
	routerMux.HandleFunc("POST /api/v1/users/login", userHandler.Login())
	routerMux.HandleFunc("GET /api/v1/users/profile", authMiddleware.Authenticate(userHandler.Profile()))
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("GET /api/v1/cart", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/cart", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/v1/cart", authMiddleware.Authenticate(cartHandler.UpdateItem()))
	routerMux.HandleFunc("DELETE /api/v1/cart", authMiddleware.Authenticate(cartHandler.ClearCart()))
	routerMux.HandleFunc("DELETE /api/v1/cart/items", authMiddleware.Authenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("POST /api/v1/promos/validate", authMiddleware.Authenticate(promoHandler.ValidatePromo()))
	routerMux.HandleFunc("POST /api/v1/orders", authMiddleware.Authenticate(orderHandler.CreateOrder()))
	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("GET /api/v1/orders/{id}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("POST /api/v1/orders/{id}/payment-intent", authMiddleware.Authenticate(paymentHandler.CreatePaymentIntent()))
	routerMux.HandleFunc("POST /api/v1/orders/{id}/cancel", authMiddleware.Authenticate(paymentHandler.CancelOrder()))
	routerMux.HandleFunc("GET /api/v1/orders/payment-intent/{id}", authMiddleware.Authenticate(paymentHandler.GetOrderByIntent()))
	routerMux.HandleFunc("POST /api/v1/orders/payment-intent/{id}/confirm", authMiddleware.Authenticate(paymentHandler.ConfirmPayment()))
	routerMux.HandleFunc("POST /api/v1/payments/webhook", paymentHandler.HandleStripeWebhook())
	routerMux.HandleFunc("POST /api/v1/payway/webhook", paymentHandler.HandlePaywayWebhook())
	routerMux.HandleFunc("POST /api/v1/admin/orders/{id}/refund", authMiddleware.RequirePermission(auth.ActionRefundOrder, paymentHandler.RefundOrder()))
	routerMux.HandleFunc("POST /api/v1/admin/orders/{id}/fulfill", authMiddleware.RequirePermission(auth.ActionFulfillOrder, orderHandler.FulfillOrder()))
	routerMux.HandleFunc("POST /api/v1/admin/notifications/email", authMiddleware.RequirePermission(auth.ActionSendEmail, notificationHandler.SendEmail()))
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /health", healthChecker.Handler())
	routerMux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Middleware chaining; metrics sits innermost so r.Pattern is set when it records
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, cfg.OTel.ServiceName)

	// Setup http server
	server := http.Server{
		Addr:              cfg.HTTPServer.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.HTTPServer.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("❌ Failed to start server", slog.String("error", err.Error()))
			done <- syscall.SIGTERM
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	// in-flight requests may still emit, so the emitter drains after the server stops
	if err := emitter.Close(shutdownCtx); err != nil {
		slog.Error("⚠️ Event emitter did not drain", slog.String("error", err.Error()))
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			slog.Error("⚠️ Error closing event stream writer", slog.String("error", err.Error()))
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("⚠️ Error flushing traces", slog.String("error", err.Error()))
	}
}
