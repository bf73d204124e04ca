package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/stackcity/stackcity/internal/port"
	"github.com/stackcity/stackcity/internal/service"
)

// RepoHandler handles repository registration and read endpoints.
type RepoHandler struct {
	registry *service.RegistryService
}

// NewRepoHandler creates a new repo handler.
func NewRepoHandler(registry *service.RegistryService) *RepoHandler {
	return &RepoHandler{registry: registry}
}

// Register sets up repo routes.
func (h *RepoHandler) Register(api fiber.Router) {
	repos := api.Group("/repos")
	repos.Post("/", h.Create)
	repos.Get("/", h.List)
	repos.Get("/:id", h.Detail)
}

// Create registers a repository and schedules its analysis.
func (h *RepoHandler) Create(c fiber.Ctx) error {
	var body service.RegistrationInput
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if body.URL == "" || body.Owner == "" || body.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields: url, owner, name",
		})
	}

	repo, job, err := h.registry.Register(c.Context(), body)
	if errors.Is(err, port.ErrJobAlreadyQueued) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  "analysis already queued for this repository",
			"repoId": repo.ID,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Repository registered and analysis scheduled",
		"repoId":  repo.ID,
		"jobId":   job.ID,
	})
}

// List returns all repositories with their latest job.
func (h *RepoHandler) List(c fiber.Ctx) error {
	repos, err := h.registry.ListRepos(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(repos)
}

// Detail returns one repository with its components and job history.
func (h *RepoHandler) Detail(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid repository id"})
	}

	detail, err := h.registry.RepoDetail(c.Context(), id)
	if errors.Is(err, port.ErrRepoNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Repository not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(detail)
}
