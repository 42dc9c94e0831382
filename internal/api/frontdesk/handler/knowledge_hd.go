package frontdeskHandler

import (
	"frontdesk/internal/api/frontdesk"
	frontdeskService "frontdesk/internal/api/frontdesk/service"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/handlerUtil"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

func (h *FrontdeskHandler) ListKnowledge(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	entries, err := h.knowledgeService.ListLearnedAnswers(c, ctx.QueryInt("limit", 0))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_knowledge")
	}

	res := make([]frontdesk.KnowledgeResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, frontdesk.NewKnowledgeResponse(e))
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"entries": res,
			"count":   len(res),
		})
	}
}

// SearchKnowledge runs the full matcher, so a hit counts as a use.
func (h *FrontdeskHandler) SearchKnowledge(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), utteranceTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req frontdesk.SearchKnowledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	entry, err := h.knowledgeService.Match(c, req.Question)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "search_knowledge")
	}

	res := frontdesk.SearchKnowledgeResponse{}
	if entry != nil {
		res = frontdesk.SearchKnowledgeResponse{Found: true, Answer: entry.Answer, ID: entry.ID}
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *FrontdeskHandler) AddKnowledge(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req frontdesk.AddKnowledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	entry, err := h.knowledgeService.AddKnowledge(c, frontdeskService.AddKnowledge{
		Question:   req.Question,
		Answer:     req.Answer,
		Category:   req.Category,
		Keywords:   req.Keywords,
		Provenance: entity.ProvenanceManual,
	})
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "add_knowledge")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, frontdesk.NewKnowledgeResponse(entry))
	}
}

func (h *FrontdeskHandler) SetKnowledgeActive(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req frontdesk.SetKnowledgeActiveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	entry, err := h.knowledgeService.SetActive(c, ctx.Params("id"), *req.IsActive)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "set_knowledge_active")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, frontdesk.NewKnowledgeResponse(entry))
	}
}
