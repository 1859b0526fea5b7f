package repos

import (
	"errors"
	"fmt"
	"time"

	"github.com/chigichan24/duff/internal/repos"
	"github.com/chigichan24/duff/internal/server/validation"
	"github.com/go-core-fx/fiberfx/handler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Handler struct {
	reposSvc *repos.Service

	validator *validator.Validate
	logger    *zap.Logger
}

func NewHandler(reposSvc *repos.Service, validator *validator.Validate, logger *zap.Logger) handler.Handler {
	return &Handler{
		reposSvc: reposSvc,

		validator: validator,
		logger:    logger,
	}
}

// Register implements handler.Handler.
func (h *Handler) Register(r fiber.Router) {
	r = r.Group("/repos")

	r.Use(h.errorsHandler)
	r.Post("/", validation.DecorateWithBodyEx(h.validator, h.post))
	r.Get("/", h.list)
	r.Put("/order", validation.DecorateWithBodyEx(h.validator, h.putOrder))
	r.Get("/:id", h.get)
	r.Patch("/:id", validation.DecorateWithBodyEx(h.validator, h.patch))
	r.Delete("/:id", h.delete)
}

//	@Summary		Register a repository
//	@Description	Register the git working copy containing the given path
//	@Tags			repos
//	@Accept			json
//	@Produce		json
//	@Param			repository	body		POSTRequest	true	"Repository registration request"
//	@Success		201			{object}	RepositoryResponse
//	@Failure		400			{object}	httperr.Response
//	@Failure		404			{object}	httperr.Response
//	@Failure		409			{object}	httperr.Response
//	@Router			/repos [post]
//
// Register a repository.
func (h *Handler) post(c *fiber.Ctx, req *POSTRequest) error {
	draft := repos.RepositoryDraft{
		Path:         req.Path,
		Name:         req.Name,
		PollInterval: time.Duration(req.PollInterval) * time.Second,
	}

	repo, err := h.reposSvc.Add(c.Context(), draft)
	if err != nil {
		return fmt.Errorf("failed to register repository: %w", err)
	}

	return c.Status(fiber.StatusCreated).JSON(toResponse(repo))
}

//	@Summary		List repositories
//	@Description	List registered repositories in display order
//	@Tags			repos
//	@Produce		json
//	@Success		200	{array}		RepositoryResponse
//	@Failure		500	{object}	httperr.Response
//	@Router			/repos [get]
//
// List repositories.
func (h *Handler) list(c *fiber.Ctx) error {
	list, err := h.reposSvc.List(c.Context())
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	return c.JSON(lo.Map(list, func(r repos.Repository, _ int) RepositoryResponse {
		return toResponse(&r)
	}))
}

//	@Summary		Get a repository
//	@Tags			repos
//	@Produce		json
//	@Param			id	path		string	true	"Repository ID"
//	@Success		200	{object}	RepositoryResponse
//	@Failure		400	{object}	httperr.Response
//	@Failure		404	{object}	httperr.Response
//	@Router			/repos/{id} [get]
func (h *Handler) get(c *fiber.Ctx) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	repo, err := h.reposSvc.Get(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get repository: %w", err)
	}

	return c.JSON(toResponse(repo))
}

//	@Summary		Update a repository
//	@Description	Change the display name or poll interval of a repository
//	@Tags			repos
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Repository ID"
//	@Param			repository	body		PATCHRequest	true	"Repository update request"
//	@Success		200			{object}	RepositoryResponse
//	@Failure		400			{object}	httperr.Response
//	@Failure		404			{object}	httperr.Response
//	@Router			/repos/{id} [patch]
func (h *Handler) patch(c *fiber.Ctx, req *PATCHRequest) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	update := repos.RepositoryUpdate{Name: req.Name}
	if req.PollInterval != nil {
		update.PollInterval = lo.ToPtr(time.Duration(*req.PollInterval) * time.Second)
	}

	repo, err := h.reposSvc.Update(c.Context(), id, update)
	if err != nil {
		return fmt.Errorf("failed to update repository: %w", err)
	}

	return c.JSON(toResponse(repo))
}

//	@Summary		Remove a repository
//	@Tags			repos
//	@Param			id	path	string	true	"Repository ID"
//	@Success		204
//	@Failure		400	{object}	httperr.Response
//	@Failure		404	{object}	httperr.Response
//	@Router			/repos/{id} [delete]
func (h *Handler) delete(c *fiber.Ctx) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	if delErr := h.reposSvc.Remove(c.Context(), id); delErr != nil {
		return fmt.Errorf("failed to remove repository: %w", delErr)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

//	@Summary		Reorder repositories
//	@Tags			repos
//	@Accept			json
//	@Produce		json
//	@Param			order	body		PUTOrderRequest	true	"Every repository id in the new order"
//	@Success		200		{array}		RepositoryResponse
//	@Failure		400		{object}	httperr.Response
//	@Router			/repos/order [put]
func (h *Handler) putOrder(c *fiber.Ctx, req *PUTOrderRequest) error {
	list, err := h.reposSvc.Reorder(c.Context(), req.IDs)
	if err != nil {
		return fmt.Errorf("failed to reorder repositories: %w", err)
	}

	return c.JSON(lo.Map(list, func(r repos.Repository, _ int) RepositoryResponse {
		return toResponse(&r)
	}))
}

func (h *Handler) errorsHandler(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, repos.ErrNotFound), errors.Is(err, repos.ErrDirectoryNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, repos.ErrAlreadyRegistered):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, repos.ErrNotAGitRepository),
		errors.Is(err, repos.ErrInvalidOrder),
		errors.Is(err, repos.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return err //nolint:wrapcheck //already wrapped
}

func getRepositoryID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.UUID{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return id, nil
}

func toResponse(r *repos.Repository) RepositoryResponse {
	return RepositoryResponse{
		ID:           r.ID,
		Name:         r.Name,
		Path:         r.Path,
		PollInterval: int(r.PollInterval / time.Second),
		Position:     r.Position,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
