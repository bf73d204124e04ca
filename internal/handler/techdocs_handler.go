package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/stackcity/stackcity/internal/domain"
	"github.com/stackcity/stackcity/internal/service"
)

// TechDocsHandler handles bulk import of technology documentation metadata.
type TechDocsHandler struct {
	registry *service.RegistryService
}

// NewTechDocsHandler creates a new tech docs handler.
func NewTechDocsHandler(registry *service.RegistryService) *TechDocsHandler {
	return &TechDocsHandler{registry: registry}
}

// Register sets up tech-docs routes.
func (h *TechDocsHandler) Register(api fiber.Router) {
	api.Post("/tech-docs/bulk", h.BulkUpsert)
}

type techDocInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// BulkUpsert inserts or updates an array of tech docs in one transaction.
func (h *TechDocsHandler) BulkUpsert(c fiber.Ctx) error {
	var body []techDocInput
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Body must be an array of tech docs"})
	}

	docs := make([]domain.TechDoc, 0, len(body))
	for _, in := range body {
		if in.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tech doc name is required"})
		}
		docs = append(docs, domain.TechDoc{
			Name:             in.Name,
			Description:      in.Description,
			DocumentationURL: in.URL,
		})
	}

	if err := h.registry.ImportTechDocs(c.Context(), docs); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Tech docs updated", "count": len(docs)})
}
