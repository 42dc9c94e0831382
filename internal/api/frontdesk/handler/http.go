package frontdeskHandler

import (
	frontdeskService "frontdesk/internal/api/frontdesk/service"
	"frontdesk/internal/middleware"
	"frontdesk/pkg/redis"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type FrontdeskHandler struct {
	log                *logrus.Logger
	validator          *validator.Validate
	middleware         middleware.Middleware
	callService        frontdeskService.ICallService
	helpRequestService frontdeskService.IHelpRequestService
	knowledgeService   frontdeskService.IKnowledgeService
	redis              redis.IRedis
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	cs frontdeskService.ICallService,
	hs frontdeskService.IHelpRequestService,
	ks frontdeskService.IKnowledgeService,
	redisClient redis.IRedis,
) *FrontdeskHandler {
	return &FrontdeskHandler{
		log:                log,
		validator:          validate,
		middleware:         middleware,
		callService:        cs,
		helpRequestService: hs,
		knowledgeService:   ks,
		redis:              redisClient,
	}
}

func (h *FrontdeskHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	calls := srv.Group("/calls", h.middleware.NewRateLimiter)
	calls.Post("/sessions", h.OpenSession)
	calls.Get("/sessions/:session_key", h.GetSession)
	calls.Delete("/sessions/:session_key", h.CloseSession)
	calls.Post("/sessions/:session_key/utterances", h.HandleUtterance)
	calls.Get("/sessions/:session_key/stream", wsMiddleware, websocket.New(h.handleCallStream))

	helpRequests := srv.Group("/help-requests")
	helpRequests.Get("", h.ListHelpRequests)
	helpRequests.Get("/pending", h.ListPendingHelpRequests)
	helpRequests.Get("/stats", h.GetHelpRequestStats)
	// Supervisors only
	helpRequests.Get("/events", h.middleware.NewTokenMiddleware, wsMiddleware, websocket.New(h.handleHelpRequestEvents))
	helpRequests.Get("/:id", h.GetHelpRequest)
	helpRequests.Post("/:id/respond", h.middleware.NewTokenMiddleware, h.RespondToHelpRequest)

	knowledge := srv.Group("/knowledge")
	knowledge.Get("", h.ListKnowledge)
	knowledge.Post("", h.AddKnowledge)
	knowledge.Post("/search", h.SearchKnowledge)
	knowledge.Patch("/:id/active", h.middleware.NewTokenMiddleware, h.SetKnowledgeActive)
}
