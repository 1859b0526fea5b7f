package changes

import (
	"errors"
	"fmt"

	"github.com/chigichan24/duff/internal/changes"
	"github.com/chigichan24/duff/internal/git"
	"github.com/chigichan24/duff/internal/repos"
	"github.com/chigichan24/duff/internal/revrange"
	"github.com/chigichan24/duff/internal/server/validation"
	"github.com/go-core-fx/fiberfx/handler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Handler struct {
	changesSvc *changes.Service

	validator *validator.Validate
	logger    *zap.Logger
}

func NewHandler(changesSvc *changes.Service, validator *validator.Validate, logger *zap.Logger) handler.Handler {
	return &Handler{
		changesSvc: changesSvc,

		validator: validator,
		logger:    logger,
	}
}

// Register implements handler.Handler.
func (h *Handler) Register(r fiber.Router) {
	r = r.Group("/repos")

	r.Use(h.errorsHandler)
	r.Get("/:id/status", h.getStatus)
	r.Get("/:id/log", h.getLog)
	r.Get("/:id/files", validation.DecorateWithQueryEx(h.validator, h.getFiles))
	r.Get("/:id/diff", validation.DecorateWithQueryEx(h.validator, h.getDiff))
	r.Get("/:id/content", validation.DecorateWithQueryEx(h.validator, h.getContent))
	r.Post("/:id/selection", validation.DecorateWithBodyEx(h.validator, h.postSelection))
}

//	@Summary		Get working copy status
//	@Tags			changes
//	@Produce		json
//	@Param			id	path		string	true	"Repository ID"
//	@Success		200	{object}	StatusResponse
//	@Failure		404	{object}	httperr.Response
//	@Failure		500	{object}	httperr.Response
//	@Router			/repos/{id}/status [get]
//
// Get working copy status.
func (h *Handler) getStatus(c *fiber.Ctx) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	status, err := h.changesSvc.Status(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	return c.JSON(StatusResponse{
		Branch:        status.Branch,
		ModifiedFiles: status.ModifiedFiles,
		HasChanges:    status.HasChanges,
		LastUpdate:    status.LastUpdate,
	})
}

//	@Summary		Get history
//	@Description	Commits and stashes, newest first
//	@Tags			changes
//	@Produce		json
//	@Param			id	path		string	true	"Repository ID"
//	@Success		200	{array}		CommitResponse
//	@Failure		404	{object}	httperr.Response
//	@Router			/repos/{id}/log [get]
func (h *Handler) getLog(c *fiber.Ctx) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	commits, err := h.changesSvc.Log(c.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get log: %w", err)
	}

	return c.JSON(lo.Map(commits, func(cm git.Commit, _ int) CommitResponse {
		return CommitResponse{
			Hash:      cm.Hash,
			ShortHash: cm.ShortHash,
			Parents:   lo.Ternary(cm.Parents == nil, []string{}, cm.Parents),
			Date:      cm.Date,
			Message:   cm.Message,
			Author:    cm.Author,
			Type:      string(cm.Type),
			Ref:       cm.Ref,
		}
	}))
}

//	@Summary		List changed files
//	@Description	Without bounds this is the list of modified files in the working copy
//	@Tags			changes
//	@Produce		json
//	@Param			id		path		string	true	"Repository ID"
//	@Param			from	query		string	false	"Base revision, HEAD by default"
//	@Param			to		query		string	false	"Target revision, working tree by default"
//	@Success		200		{object}	FilesResponse
//	@Failure		400		{object}	httperr.Response
//	@Failure		404		{object}	httperr.Response
//	@Router			/repos/{id}/files [get]
func (h *Handler) getFiles(c *fiber.Ctx, q *RangeQuery) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	files, err := h.changesSvc.Files(c.Context(), id, revrange.Range{From: q.From, To: q.To})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	return c.JSON(FilesResponse{Files: lo.Ternary(files == nil, []string{}, files)})
}

//	@Summary		Get unified diff
//	@Tags			changes
//	@Produce		json
//	@Param			id		path		string	true	"Repository ID"
//	@Param			file	query		string	false	"Single file, every changed file by default"
//	@Param			from	query		string	false	"Base revision, HEAD by default"
//	@Param			to		query		string	false	"Target revision, working tree by default"
//	@Success		200		{object}	DiffResponse
//	@Failure		400		{object}	httperr.Response
//	@Failure		403		{object}	httperr.Response
//	@Failure		404		{object}	httperr.Response
//	@Router			/repos/{id}/diff [get]
func (h *Handler) getDiff(c *fiber.Ctx, q *DiffQuery) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	diff, err := h.changesSvc.Diff(c.Context(), id, q.File, revrange.Range{From: q.From, To: q.To})
	if err != nil {
		return fmt.Errorf("failed to get diff: %w", err)
	}

	return c.JSON(DiffResponse{Diff: diff})
}

//	@Summary		Get raw file content
//	@Description	Exact bytes of a file on disk or at a revision
//	@Tags			changes
//	@Produce		octet-stream
//	@Param			id		path		string	true	"Repository ID"
//	@Param			file	query		string	true	"File path"
//	@Param			version	query		string	false	"Revision, working tree by default"
//	@Success		200		{file}		binary
//	@Failure		400		{object}	httperr.Response
//	@Failure		403		{object}	httperr.Response
//	@Failure		404		{object}	httperr.Response
//	@Router			/repos/{id}/content [get]
func (h *Handler) getContent(c *fiber.Ctx, q *ContentQuery) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	content, err := h.changesSvc.Content(c.Context(), id, q.File, q.Version)
	if err != nil {
		return fmt.Errorf("failed to get content: %w", err)
	}

	c.Set(fiber.HeaderContentType, content.MIMEType)
	return c.Send(content.Data)
}

//	@Summary		Update history selection
//	@Description	Apply an optional click to a selection and resolve it to a range
//	@Tags			changes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Repository ID"
//	@Param			selection	body		SelectionRequest	true	"Current selection and click"
//	@Success		200			{object}	SelectionResponse
//	@Failure		400			{object}	httperr.Response
//	@Failure		404			{object}	httperr.Response
//	@Router			/repos/{id}/selection [post]
func (h *Handler) postSelection(c *fiber.Ctx, req *SelectionRequest) error {
	id, err := getRepositoryID(c)
	if err != nil {
		return err
	}

	var (
		click *revrange.Endpoint
		shift bool
	)
	if req.Click != nil {
		click = &req.Click.Node
		shift = req.Click.Shift
	}

	res, err := h.changesSvc.Select(c.Context(), id, req.Selection, click, shift)
	if err != nil {
		return fmt.Errorf("failed to resolve selection: %w", err)
	}

	return c.JSON(SelectionResponse{
		Selection: res.Selection,
		Range:     res.Range,
		Files:     lo.Ternary(res.Files == nil, []string{}, res.Files),
	})
}

func (h *Handler) errorsHandler(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, changes.ErrAccessDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, changes.ErrInvalidInput),
		errors.Is(err, git.ErrInvalidRevision),
		errors.Is(err, revrange.ErrInvalidEndpoint):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, repos.ErrNotFound),
		errors.Is(err, git.ErrNotARepository),
		errors.Is(err, git.ErrFileNotFound),
		errors.Is(err, git.ErrRevisionNotFound),
		errors.Is(err, revrange.ErrUnknownRevision):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
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
