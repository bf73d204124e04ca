package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/stackcity/stackcity/internal/port"
	"github.com/stackcity/stackcity/internal/service"
)

// JobHandler exposes analysis job status for polling clients.
type JobHandler struct {
	registry *service.RegistryService
}

// NewJobHandler creates a new job handler.
func NewJobHandler(registry *service.RegistryService) *JobHandler {
	return &JobHandler{registry: registry}
}

// Register sets up job routes.
func (h *JobHandler) Register(api fiber.Router) {
	jobs := api.Group("/jobs")
	jobs.Get("/:id", h.GetStatus)
}

// GetStatus returns the current state of one analysis job.
func (h *JobHandler) GetStatus(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job id"})
	}

	job, err := h.registry.JobStatus(c.Context(), id)
	if errors.Is(err, port.ErrJobNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(job)
}
