package main

import (
	"log"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"userapi/internal/handlers"
	"userapi/internal/models"
	"userapi/internal/repositories"
	"userapi/internal/services"
	"userapi/pkg/rabbitmq"
)

// defaultEmailPattern is the validation pattern applied when EMAIL_REGEX is
// not configured: 6-30 local characters, 2-15 domain characters, 1-10 TLD
// letters.
const defaultEmailPattern = `^[A-Za-z0-9.]{6,30}@[A-Za-z0-9.]{2,15}\.[A-Za-z]{1,10}$`

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("AGE_LIMIT", 18)
	viper.SetDefault("EMAIL_REGEX", defaultEmailPattern)
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("DATABASE_DSN", "")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	ageLimit := viper.GetInt("AGE_LIMIT")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")
	databaseDSN := viper.GetString("DATABASE_DSN")

	emailRegex, err := regexp.Compile(viper.GetString("EMAIL_REGEX"))
	if err != nil {
		log.Fatalf("Invalid EMAIL_REGEX: %v", err)
	}

	// --- Initialize Repository ---
	// The in-memory store is the default; a configured DSN switches to
	// Postgres behind the same interface.
	var userRepo repositories.UserRepository
	if databaseDSN != "" {
		db, err := gorm.Open(postgres.Open(databaseDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		userRepo = repositories.NewGORMUserRepository(db)
		log.Println("Using Postgres user repository")
	} else {
		userRepo = repositories.NewMemoryUserRepository()
		log.Println("Using in-memory user repository")
	}

	// --- Initialize RabbitMQ Client (optional) ---
	var mqClient *rabbitmq.Client
	if rabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	}

	// Avoid handing the service a typed-nil interface when events are off.
	var events services.EventPublisher
	if mqClient != nil {
		events = mqClient
	}

	// --- Initialize Service and Handler ---
	userService := services.NewUserService(userRepo, events, ageLimit, emailRegex)
	userHandler := handlers.NewUserHandler(userService, emailRegex)

	// --- Initialize Fiber App ---
	app := fiber.New()
	app.Use(logger.New())

	apiV1 := app.Group("/api/v1")
	userHandler.RegisterRoutes(apiV1)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start RabbitMQ Consumer ---
	// Logs every user mutation as a simple audit trail.
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for user events...")
			handler := func(msg amqp.Delivery) error {
				log.Printf("Received user event (tag %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumeUserEvents(handler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
