package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/config"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/events"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/handlers"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/middleware"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/repository"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/services"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger *slog.Logger) error {
	userRepo := repository.NewUserRepository(db)
	expertProfileRepo := repository.NewExpertProfileRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	publisher := events.NewFallback(logger)
	if cfg.AMQPUrl != "" {
		var err error
		publisher, err = events.New(cfg.AMQPUrl, cfg.EventsExchange, logger)
		if err != nil {
			return err
		}
	}

	assignmentService := services.NewAssignmentService(db, assignmentRepo, publisher, logger)
	queueService := services.NewQueueService(db)
	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo)
	updatesService := services.NewUpdatesService(db, conversationRepo, messageRepo)

	authHandler := handlers.NewAuthHandler(db, userRepo, expertProfileRepo, cfg.JWTSecret)
	conversationHandler := handlers.NewConversationHandler(chatService)
	messageHandler := handlers.NewMessageHandler(chatService)
	expertHandler := handlers.NewExpertHandler(assignmentService, queueService, expertProfileRepo)
	updatesHandler := handlers.NewUpdatesHandler(updatesService)

	auth := app.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", middleware.AuthRequired(cfg.JWTSecret), authHandler.Refresh)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	conversations := app.Group("/conversations", middleware.AuthRequired(cfg.JWTSecret))
	conversations.Get("", conversationHandler.ListConversations)
	conversations.Post("", conversationHandler.CreateConversation)
	conversations.Get("/:id", conversationHandler.GetConversation)
	conversations.Get("/:id/messages", conversationHandler.GetMessages)

	messages := app.Group("/messages", middleware.AuthRequired(cfg.JWTSecret))
	messages.Post("", messageHandler.CreateMessage)
	messages.Put("/:id/read", messageHandler.MarkRead)

	expert := app.Group("/expert", middleware.AuthRequired(cfg.JWTSecret))
	expert.Get("/queue", expertHandler.GetQueue)
	expert.Post("/conversations/:conversation_id/claim", expertHandler.Claim)
	expert.Post("/conversations/:conversation_id/unclaim", expertHandler.Unclaim)
	expert.Get("/profile", expertHandler.GetProfile)
	expert.Put("/profile", expertHandler.UpdateProfile)
	expert.Get("/assignments/history", expertHandler.AssignmentHistory)

	api := app.Group("/api", middleware.AuthRequired(cfg.JWTSecret))
	api.Get("/conversations/updates", updatesHandler.Conversations)
	api.Get("/messages/updates", updatesHandler.Messages)
	api.Get("/expert-queue/updates", updatesHandler.ExpertQueue)

	return nil
}
