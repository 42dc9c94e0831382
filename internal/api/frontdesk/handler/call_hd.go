package frontdeskHandler

import (
	"errors"
	"frontdesk/internal/api/frontdesk"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/handlerUtil"
	"frontdesk/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

// utteranceTimeout covers matching, escalation and generation, each of which
// has its own inference timeout.
const utteranceTimeout = 45 * time.Second

func (h *FrontdeskHandler) OpenSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req frontdesk.OpenSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	conv, err := h.callService.OpenSession(c, req.SessionKey, req.CustomerPhone, req.CustomerName)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, frontdesk.NewSessionResponse(conv))
	}
}

func (h *FrontdeskHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	conv, err := h.callService.GetSession(c, ctx.Params("session_key"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, frontdesk.NewSessionResponse(conv))
	}
}

func (h *FrontdeskHandler) CloseSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if err := h.callService.CloseSession(c, ctx.Params("session_key")); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "close_session")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
}

func (h *FrontdeskHandler) HandleUtterance(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), utteranceTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)
	sessionKey := ctx.Params("session_key")

	h.log.WithFields(log.Fields{
		"request_id":  requestID,
		"session_key": sessionKey,
	}).Debug("Processing utterance")

	var req frontdesk.UtteranceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.callService.HandleUtterance(c, sessionKey, req.Text)
	if errors.Is(err, frontdesk.ErrEscalationFailed) {
		return errHandler.HandleWithBody(ctx, requestID, err, ctx.Path(), "handle_utterance", fiber.Map{
			"reply":     result.Reply,
			"escalated": result.Escalated,
		})
	}
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "handle_utterance")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}
