package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	"farmlink/internal/adapter/api"
	"farmlink/internal/adapter/api/handler"
	apimiddleware "farmlink/internal/adapter/api/middleware"
	"farmlink/internal/adapter/api/router"
	"farmlink/internal/adapter/repository"
	domainrepo "farmlink/internal/domain/repository"
	"farmlink/internal/infrastructure/websocket"
	"farmlink/internal/usecase"
	"farmlink/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var (
		authClient  *fbauth.Client
		userRepo    domainrepo.UserRepository
		chatRepo    domainrepo.ChatRepository
		productRepo domainrepo.ProductRepository
	)

	if cfg.FirebaseProject != "" {
		var opts []option.ClientOption
		if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
		} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
			opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
		}

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}

		authClient, err = firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		userRepo = repository.NewFirestoreUserRepository(firestoreClient)
		chatRepo = repository.NewFirestoreChatRepository(firestoreClient)
		productRepo = repository.NewFirestoreProductRepository(firestoreClient)
	} else {
		// No project configured: in-memory storage and HS256 dev tokens.
		log.Printf("FIREBASE_PROJECT_ID not set, using in-memory repositories")
		userRepo = repository.NewMemoryUserRepository()
		chatRepo = repository.NewMemoryChatRepository()
		productRepo = repository.NewMemoryProductRepository()
	}

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, wsManager)
	userUseCase := usecase.NewUserUseCase(userRepo)
	productUseCase := usecase.NewProductUseCase(productRepo, userRepo, wsManager)

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient, cfg)

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Validator = api.NewValidator()

	handlers := router.Handlers{
		Chat:      handler.NewChatHandler(chatUseCase),
		User:      handler.NewUserHandler(userUseCase, chatUseCase),
		Product:   handler.NewProductHandler(productUseCase),
		WebSocket: handler.NewWebSocketHandler(wsManager, authMiddleware, userRepo),
		Health:    handler.NewHealthHandler(),
		DevToken:  handler.NewDevTokenHandler(cfg),
	}
	router.Setup(e, handlers, authMiddleware, cfg.Environment == "development")

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
