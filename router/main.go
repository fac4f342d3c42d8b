package router

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aparaitech/lms-api/config"
	"github.com/aparaitech/lms-api/database"
	"github.com/aparaitech/lms-api/handlers"
	course_handlers "github.com/aparaitech/lms-api/handlers/course"
	educator_handlers "github.com/aparaitech/lms-api/handlers/educator"
	purchase_handlers "github.com/aparaitech/lms-api/handlers/purchase"
	user_handlers "github.com/aparaitech/lms-api/handlers/user"
	webhook_handlers "github.com/aparaitech/lms-api/handlers/webhook"
	"github.com/aparaitech/lms-api/services"
	"github.com/aparaitech/lms-api/services/clerk"
	"github.com/aparaitech/lms-api/services/razorpay"
	"github.com/aparaitech/lms-api/services/storage"
	"github.com/aparaitech/lms-api/utils"
	"github.com/aparaitech/lms-api/utils/cache"
	"github.com/aparaitech/lms-api/utils/middleware"
)

// SetupRoutes is the composition root: vendor clients are constructed
// once here and injected into the services and handlers that use them.
func SetupRoutes(app *fiber.App, store database.Storage) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis cache for the course catalog. Optional; a miss on startup
	// just disables caching.
	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v. Catalog caching will be disabled.", err)
			redisCache = nil
		}
	}

	// Payment gateway client. A misconfiguration is kept, not fatal:
	// checkout endpoints report it as 503 while the rest of the API works.
	var gateway services.PaymentGateway
	var gatewayKeyID string
	rzpClient, gatewayErr := razorpay.NewClient(razorpay.Config{
		KeyID:     getEnv.RAZORPAY_KEY_ID,
		KeySecret: getEnv.RAZORPAY_KEY_SECRET,
	})
	if gatewayErr != nil {
		var configErr *razorpay.ConfigError
		if !errors.As(gatewayErr, &configErr) {
			log.Fatal("Failed to create payment gateway client: ", gatewayErr)
		}
		log.Printf("Warning: %v. Checkout endpoints will answer 503.", gatewayErr)
	} else {
		gateway = rzpClient
		gatewayKeyID = rzpClient.KeyID()
	}

	// Identity provider client. Required: the API has no local credentials.
	clerkClient, err := clerk.NewClient(clerk.Config{SecretKey: getEnv.CLERK_SECRET_KEY})
	if err != nil {
		log.Fatal("Failed to create identity provider client: ", err)
	}

	// Webhook verifier. Optional; without a secret, deliveries answer 503.
	var webhookVerifier *clerk.WebhookVerifier
	if getEnv.CLERK_WEBHOOK_SECRET != "" {
		webhookVerifier, err = clerk.NewWebhookVerifier(getEnv.CLERK_WEBHOOK_SECRET)
		if err != nil {
			log.Printf("Warning: invalid webhook signing secret: %v", err)
		}
	}

	// Object storage for thumbnails and PDF resources. Optional.
	var spacesClient *storage.SpacesClient
	if getEnv.SPACES_ACCESS_KEY != "" {
		spacesClient, err = storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: getEnv.SPACES_ACCESS_KEY,
			SecretKey: getEnv.SPACES_SECRET_KEY,
			Bucket:    getEnv.SPACES_BUCKET,
			Region:    getEnv.SPACES_REGION,
			Endpoint:  getEnv.SPACES_ENDPOINT,
			CDNURL:    getEnv.SPACES_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: Failed to create storage client: %v. Uploads will answer 503.", err)
			spacesClient = nil
		}
	}

	// Services
	emailService := services.NewEmailService()
	enrollmentService := services.NewEnrollmentService(db)
	orderService := services.NewOrderService(db, gateway, enrollmentService, getEnv.CURRENCY)
	verificationService := services.NewVerificationService(db, gateway, enrollmentService, emailService)
	progressService := services.NewProgressService(db, enrollmentService)
	catalogService := services.NewCatalogService(db, enrollmentService, redisCache)

	// Auth middleware validates provider session tokens
	authMiddleware, err := middleware.NewAuthMiddleware(getEnv.CLERK_JWT_PUBLIC_KEY, clerkClient, db)
	if err != nil {
		log.Fatal("Failed to create auth middleware: ", err)
	}

	// Handlers
	courseHandler := course_handlers.NewCourseHandler(catalogService)
	purchaseHandler := purchase_handlers.NewPurchaseHandler(orderService, verificationService, gatewayKeyID, gatewayErr)
	userHandler := user_handlers.NewUserHandler(enrollmentService, progressService)
	educatorHandler := educator_handlers.NewEducatorHandler(db, clerkClient, spacesClient, catalogService, enrollmentService)
	webhookHandler := webhook_handlers.NewClerkHandler(db, webhookVerifier)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Catalog routes (public; detail view honors an optional token)
	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)

	// Identity provider webhooks (public, signature-verified)
	api.Post("/webhooks/clerk", webhookHandler.HandleEvent)

	// Authenticated user routes
	users := api.Group("/users", authMiddleware.Required())
	users.Get("/me", userHandler.GetUserData)
	users.Get("/me/courses", userHandler.EnrolledCourses)

	// Checkout routes
	purchase := api.Group("/purchase")
	purchase.Get("/check-config", purchaseHandler.CheckConfig)
	purchase.Post("/create-order", authMiddleware.Required(), purchaseHandler.CreateOrder)
	purchase.Post("/verify-payment", authMiddleware.Required(), purchaseHandler.VerifyPayment)

	// Progress routes
	progress := api.Group("/progress", authMiddleware.Required())
	progress.Post("/lecture-complete", userHandler.UpdateProgress)
	progress.Post("/get", userHandler.GetProgress)
	progress.Post("/rating", userHandler.AddRating)

	// Educator routes. Role promotion only needs authentication; the
	// rest requires the educator role and per-course ownership.
	api.Post("/educator/update-role", authMiddleware.Required(), educatorHandler.UpdateRole)

	educator := api.Group("/educator", authMiddleware.Required(), authMiddleware.RequireEducator())
	educator.Post("/courses", educatorHandler.AddCourse)
	educator.Get("/courses", educatorHandler.MyCourses)
	educator.Get("/courses/:id", educatorHandler.GetCourse)
	educator.Put("/courses/:id", educatorHandler.UpdateCourse)
	educator.Delete("/courses/:id", educatorHandler.DeleteCourse)
	educator.Post("/courses/:id/pdfs", educatorHandler.AddPdf)
	educator.Get("/dashboard", educatorHandler.Dashboard)
	educator.Get("/students", educatorHandler.EnrolledStudents)
	educator.Post("/assign", educatorHandler.AssignCourse)
	educator.Delete("/courses/:id/students/:studentId", educatorHandler.RemoveStudentAccess)
}
