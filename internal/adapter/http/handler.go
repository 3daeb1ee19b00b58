package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"resume-pdf-export/internal/domain"
	"resume-pdf-export/internal/model"
	"resume-pdf-export/internal/observability"
	"resume-pdf-export/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter renders one job. *usecase.Processor implements it.
type Exporter interface {
	Process(ctx context.Context, job *domain.RenderJob) (*domain.PDFArtifact, error)
}

type Handler struct {
	exporter Exporter
	logger   *slog.Logger
}

func NewHandler(e Exporter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = observability.Discard()
	}
	return &Handler{exporter: e, logger: logger}
}

// NewApp builds the fiber app with every route registered. Access logs go to
// accessLog; nil disables them.
func NewApp(h *Handler, accessLog io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               observability.ServiceName,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if accessLog != nil {
		app.Use(logger.New(logger.Config{Output: accessLog}))
	}
	h.Register(app)
	return app
}

func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Post("/generate", h.Generate)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Generate validates the body, runs the export and streams the PDF back. An
// invalid body is rejected before any browser is started.
func (h *Handler) Generate(c *fiber.Ctx) error {
	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "request body must be a JSON object"})
	}

	req, err := model.DecodeRequest(body)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("request validation unavailable", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "request validation unavailable"})
	}

	job := domain.NewRenderJob(req)
	c.Set("X-Request-ID", job.ID.String())

	artifact, err := h.exporter.Process(c.UserContext(), job)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(usecase.AsExportError(err)))
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(job.Filename())))
	return c.Status(fiber.StatusOK).Send(artifact.Data)
}

func errorBody(ee *usecase.ExportError) fiber.Map {
	body := fiber.Map{
		"error":   string(ee.Kind),
		"message": ee.Message,
		"type":    ee.NativeType(),
	}
	if code := ee.Code(); code != "" {
		body["code"] = code
	}
	if ee.Detail != "" {
		body["detail"] = ee.Detail
	}
	return body
}

// sanitizeFilename keeps the attachment name a single, quotable header token.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case r == '"', r == '\\', r == '/':
			return '_'
		}
		return r
	}, name)
}
