package frontdeskHandler

import (
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/handlerUtil"
	jwtPkg "frontdesk/pkg/jwt"
	"frontdesk/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"strings"
	"time"
)

func newHelpRequestList(requests []entity.HelpRequest) fiber.Map {
	res := make([]frontdesk.HelpRequestResponse, 0, len(requests))
	for _, hr := range requests {
		res = append(res, frontdesk.NewHelpRequestResponse(hr))
	}
	return fiber.Map{
		"help_requests": res,
		"count":         len(res),
	}
}

func (h *FrontdeskHandler) ListHelpRequests(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	requests, err := h.helpRequestService.ListAll(c, ctx.Query("status"), ctx.QueryInt("limit", 0))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_help_requests")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, newHelpRequestList(requests))
	}
}

func (h *FrontdeskHandler) ListPendingHelpRequests(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	requests, err := h.helpRequestService.ListPending(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_pending_help_requests")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, newHelpRequestList(requests))
	}
}

func (h *FrontdeskHandler) GetHelpRequestStats(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	stats, err := h.helpRequestService.Statistics(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "help_request_stats")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, stats)
	}
}

func (h *FrontdeskHandler) GetHelpRequest(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	hr, err := h.helpRequestService.GetByID(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_help_request")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, frontdesk.NewHelpRequestResponse(hr))
	}
}

// RespondToHelpRequest records the supervisor's answer. When the body names
// no supervisor, the name from the token is used.
func (h *FrontdeskHandler) RespondToHelpRequest(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	supervisor, err := jwtPkg.GetSupervisorLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized")
	}

	var req frontdesk.ResolveHelpRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if strings.TrimSpace(req.SupervisorName) == "" {
		req.SupervisorName = supervisor.Name
	}

	h.log.WithFields(log.Fields{
		"request_id":      requestID,
		"help_request_id": ctx.Params("id"),
		"supervisor_id":   supervisor.ID,
		"resolved":        req.IsResolved(),
	}).Info("Supervisor responding to help request")

	hr, err := h.helpRequestService.Resolve(c, ctx.Params("id"), req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "respond_help_request")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, frontdesk.NewHelpRequestResponse(hr))
	}
}
