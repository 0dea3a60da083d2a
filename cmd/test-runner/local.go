package main

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cloudfoundry/s3cli-test-runner/internal/runner"
)

// newLocalServer exposes the handler over HTTP for running outside Lambda.
func newLocalServer(handler *runner.Handler) *fiber.App {
	app := fiber.New()

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Post("/invoke", func(c *fiber.Ctx) error {
		status, body := invoke(c.Context(), handler, c.Body())
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(status).Send(body)
	})

	return app
}
