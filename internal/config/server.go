package config

import (
	"fmt"
	"frontdesk/database/postgres"
	frontdeskHandler "frontdesk/internal/api/frontdesk/handler"
	frontdeskRepository "frontdesk/internal/api/frontdesk/repository"
	frontdeskService "frontdesk/internal/api/frontdesk/service"
	"frontdesk/internal/api/frontdesk/session"
	"frontdesk/internal/middleware"
	"frontdesk/pkg/gemini"
	"frontdesk/pkg/llm"
	"frontdesk/pkg/openai"
	"frontdesk/pkg/redis"
	"frontdesk/pkg/s3"
	"frontdesk/pkg/utils"
	"frontdesk/pkg/whatsapp"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"os"
	"strings"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	redisServer    redis.IRedis
	whatsappClient whatsapp.IWhatsappSender
	completer      llm.ICompleter
	s3Client       s3.ItfS3
	closers        []func() error
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.db == nil {
		return nil, fmt.Errorf("database is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase connects to Postgres and applies the schema.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		s.db = db
		s.closers = append(s.closers, db.Close)
		return nil
	}
}

// WithRedisServer enables help request events when REDIS_ADDRESS is set.
func WithRedisServer() ServerOption {
	return func(s *Server) error {
		if os.Getenv("REDIS_ADDRESS") == "" {
			if s.log != nil {
				s.log.Warn("REDIS_ADDRESS not set, help request events disabled")
			}
			return nil
		}
		s.redisServer = redis.New()
		s.closers = append(s.closers, s.redisServer.Close)
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithS3Client enables transcript archiving when AWS_BUCKET_NAME is set.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AWS_BUCKET_NAME") == "" {
			if s.log != nil {
				s.log.Warn("AWS_BUCKET_NAME not set, transcript archiving disabled")
			}
			return nil
		}

		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithWhatsappClient enables customer follow-ups when WHATSAPP_ENABLED=true.
func WithWhatsappClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("WHATSAPP_ENABLED") != "true" {
			return nil
		}

		client, err := whatsapp.New(context.Background())
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize WhatsApp client: %v", err)
			}
			return fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		s.whatsappClient = client
		s.closers = append(s.closers, client.Disconnect)
		return nil
	}
}

// WithLLM selects the inference provider from LLM_PROVIDER (openai or gemini).
func WithLLM() ServerOption {
	return func(s *Server) error {
		provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))

		switch provider {
		case "", "openai":
			client, err := openai.NewChatGPT()
			if err != nil {
				return fmt.Errorf("failed to create OpenAI client: %w", err)
			}
			s.completer = client
		case "gemini":
			client, err := gemini.NewGeminiClient()
			if err != nil {
				if s.log != nil {
					s.log.Errorf("Failed to create Gemini client: %v", err)
				}
				return fmt.Errorf("failed to create Gemini client: %w", err)
			}
			s.completer = client
			s.closers = append(s.closers, client.Close)
		default:
			return fmt.Errorf("unknown LLM_PROVIDER %q", provider)
		}

		if s.log != nil {
			s.log.WithField("provider", provider).Info("Inference provider configured")
		}
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	cfg := frontdeskService.LoadConfig()

	// Front desk domain
	frontdeskRepo := frontdeskRepository.New(s.db, s.log)
	events := frontdeskService.NewEventPublisher(s.log, s.redisServer)

	var archive frontdeskService.ITranscriptArchive
	if s.s3Client != nil {
		archive = frontdeskService.NewTranscriptArchive(s.s3Client, s.utils)
	}

	knowledgeServices := frontdeskService.NewKnowledgeService(s.log, frontdeskRepo, s.completer, s.utils, cfg)
	escalationPolicy := frontdeskService.NewEscalationPolicy(s.log, s.completer, cfg)
	helpRequestServices := frontdeskService.NewHelpRequestService(s.log, frontdeskRepo, s.utils, events, s.whatsappClient, cfg)
	callServices := frontdeskService.NewCallService(s.log, session.NewStore(), knowledgeServices, escalationPolicy, helpRequestServices, s.completer, archive, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := knowledgeServices.SeedInitialKnowledge(ctx); err != nil {
		return fmt.Errorf("failed to seed knowledge base: %w", err)
	}

	frontdeskHandlers := frontdeskHandler.New(s.log, s.validator, s.middleware, callServices, helpRequestServices, knowledgeServices, s.redisServer)

	s.handlers = append(s.handlers, frontdeskHandlers)
	return nil
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests and releases every client, in reverse
// order of creation.
func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)

	for i := len(s.closers) - 1; i >= 0; i-- {
		if closeErr := s.closers[i](); closeErr != nil {
			s.log.Warnf("Error releasing resource: %v", closeErr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})

	s.engine.Get("/api/v1/health", func(ctx *fiber.Ctx) error {
		c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		status := fiber.Map{"database": "ok"}
		code := fiber.StatusOK

		if err := s.db.PingContext(c); err != nil {
			status["database"] = "unavailable"
			code = fiber.StatusServiceUnavailable
		}

		if s.redisServer != nil {
			status["redis"] = "ok"
			if err := s.redisServer.Ping(c); err != nil {
				status["redis"] = "unavailable"
			}
		}

		return ctx.Status(code).JSON(status)
	})
}
