package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"activerecord/docs"
	"activerecord/internal/service"
)

// RegisterRoutes attaches the API routes to app.
func RegisterRoutes(app *fiber.App, db Pinger, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	documents := app.Group("/documents")
	documents.Get("/", ListDocuments(docSvc))
	documents.Post("/", UploadDocument(docSvc))
	documents.Get("/:id", GetDocument(docSvc))
	documents.Patch("/:id", RenameDocument(docSvc))
	documents.Delete("/:id", DeleteDocument(docSvc))
	documents.Get("/:id/download", DownloadDocument(docSvc))

	app.Get("/swagger/*", Swagger())
}

// Swagger serves the UI. doc.json is rendered per request with the request's host and
// scheme, so the "try it out" calls work behind a proxy. The shared docs.SwaggerInfo is
// never written.
func Swagger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Params("*") != "doc.json" {
			return swagger.HandlerDefault(c)
		}
		scheme := c.Protocol()
		if proto := c.Get(fiber.HeaderXForwardedProto); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		spec := *docs.SwaggerInfo
		spec.Host = c.Hostname()
		spec.Schemes = []string{scheme}
		c.Type("json")
		return c.SendString(spec.ReadDoc())
	}
}
