package controller

import (
	"errors"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/pkg/serverutils"
	"study-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IWorkflowController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Query(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	Info(ctx *fiber.Ctx) error
}

type workflowController struct {
	service service.IWorkflowService
}

func NewWorkflowController(service service.IWorkflowService) IWorkflowController {
	return &workflowController{service: service}
}

func (c *workflowController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/workflow/v1")
	h.Get("/info", c.Info)
	h.Post("/query", auth, c.Query)
	h.Get("/sessions/:id", auth, c.GetSession)
}

func (c *workflowController) Query(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req dto.WorkflowQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.service.Query(ctx.UserContext(), userId, &req, nil)
	if res.Error != nil {
		status := serverutils.StatusForStageError(res.Error)
		return ctx.Status(status).JSON(serverutils.BaseResponse[*dto.WorkflowQueryResponse]{
			Success: false,
			Code:    status,
			Message: "Workflow failed",
			Data:    res,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Workflow completed", res))
}

func (c *workflowController) GetSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	res, err := c.service.GetSession(ctx.UserContext(), userId, sessionId)
	if errors.Is(err, service.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *workflowController) Info(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get workflow info", c.service.Info()))
}
