package ssbspoof

import (
	"github.com/gofiber/fiber/v2"
)

// Monitor serves live session diagnostics over HTTP: /status (session state
// and live counters), /detections and /runs (ledger history), /metrics
// (Prometheus text). Read-only; intended for loopback use while an attack
// session runs.
type Monitor struct {
	app  *fiber.App
	addr string
}

func NewMonitor(cfg MonitorConfig, board *StatusBoard, metrics MetricsCollector, ledger *AttackLedger) *Monitor {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(board.Snapshot())
	})

	app.Get("/detections", func(c *fiber.Ctx) error {
		if ledger == nil {
			return c.JSON([]DetectionRow{})
		}
		rows, err := ledger.Detections(c.QueryInt("limit", 50))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if rows == nil {
			rows = []DetectionRow{}
		}
		return c.JSON(rows)
	})

	app.Get("/runs", func(c *fiber.Ctx) error {
		if ledger == nil {
			return c.JSON([]RunRow{})
		}
		rows, err := ledger.Runs(c.QueryInt("limit", 50))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if rows == nil {
			rows = []RunRow{}
		}
		return c.JSON(rows)
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
		return c.SendString(metrics.ExportPrometheus())
	})

	return &Monitor{app: app, addr: cfg.ListenAddr}
}

// Start blocks serving until Shutdown; run it on its own goroutine.
func (m *Monitor) Start() error {
	return m.app.Listen(m.addr)
}

func (m *Monitor) Shutdown() error {
	return m.app.Shutdown()
}
