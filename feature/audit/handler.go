package audit

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"payroll-auditor/core/logger"
	"payroll-auditor/core/utils"
)

// Handler handles HTTP requests for payroll comparisons.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the audit routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/audit")
	group.Post("/compare", h.HandleCompare)
	group.Get("/results", h.HandleListResults)
	group.Get("/results/:id", h.HandleGetResult)
	group.Delete("/results/:id", h.HandleDeleteResult)

	app.Get("/api/status", h.HandleStatus)
}

// HandleCompare accepts two payroll files plus comparison settings, runs the
// engine, and returns the stored comparison (id, summary, discrepancies).
// Form fields: file1, file2 (required), earnings_tolerance, name_threshold,
// fuzzy_matching (checkbox).
func (h *Handler) HandleCompare(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	fileA, err := readUpload(c, "file1")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "please select both files for comparison",
		})
	}
	fileB, err := readUpload(c, "file2")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "please select both files for comparison",
		})
	}

	opts := Options{
		EarningsTolerance: c.FormValue("earnings_tolerance"),
		NameThreshold:     c.FormValue("name_threshold"),
		FuzzyMatching:     utils.ToBool(c.FormValue("fuzzy_matching")),
	}

	comparison, err := h.service.Compare(c.Context(), fileA, fileB, opts)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			l.Warn("Comparison rejected", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		l.Error("Comparison failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(comparison)
}

// HandleGetResult returns a previously stored comparison result by id.
func (h *Handler) HandleGetResult(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("id")

	data, err := h.service.Result(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		default:
			l.Error("Result fetch failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// HandleListResults lists the ids of all stored comparisons.
func (h *Handler) HandleListResults(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	ids, err := h.service.List(c.Context())
	if err != nil {
		l.Error("Result listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"results": ids})
}

// HandleDeleteResult removes a stored comparison and its uploaded inputs.
func (h *Handler) HandleDeleteResult(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("id")

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Result deletion failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// HandleStatus reports the engine version and supported format tags.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// readUpload reads one multipart file field into memory.
func readUpload(c *fiber.Ctx, field string) (Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return Upload{}, err
	}
	data, err := readAll(fh)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Filename: fh.Filename, Data: data}, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
