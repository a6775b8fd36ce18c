package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wxforward/wulike/internal/record"
	"github.com/wxforward/wulike/internal/uploader"
)

// Deps carries what the handlers need from the rest of the process.
type Deps struct {
	// Enqueue hands an accepted record to the upload worker.
	Enqueue func(rec *record.ArchiveRecord)
	// Enabled reports whether the uploader will post at all.
	Enabled bool
	// Stats exposes upload counters on the status endpoint.
	Stats *uploader.Stats
	// SpoolCount returns the number of records waiting for catch-up.
	// May be nil when no spool is configured.
	SpoolCount func() (int, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. The host pushes
// archive records here when it is not publishing them over MQTT.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Post("/records", func(c *fiber.Ctx) error {
		if !deps.Enabled {
			return fiber.NewError(fiber.StatusServiceUnavailable, "uploader is disabled")
		}

		var rec record.ArchiveRecord
		if err := c.BodyParser(&rec); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid archive record payload")
		}
		if err := rec.Validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		deps.Enqueue(&rec)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"accepted":  true,
			"timestamp": rec.Timestamp,
		})
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"enabled":  deps.Enabled,
			"counters": deps.Stats.Snapshot(),
		}
		if deps.SpoolCount != nil {
			n, err := deps.SpoolCount()
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to read spool")
			}
			resp["spooled"] = n
		}
		return c.JSON(resp)
	})
}
