package server

import (
	"bytes"
	"net/http"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/experiment"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

// handleHealth returns server health status
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "placesim",
		"timestamp": time.Now().UTC(),
	})
}

// handleReady pings every registered backing store.
func (s *Server) handleReady(c *fiber.Ctx) error {
	ready := true
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check.Health(c.UserContext()); err != nil {
			ready = false
			components[name] = "unhealthy"
			s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			continue
		}
		components[name] = "healthy"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"ready":      ready,
		"components": components,
	})
}

func (s *Server) handleListAlgorithms(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"algorithms": s.runner.Algorithms(),
	})
}

func (s *Server) handleListExperiments(c *fiber.Ctx) error {
	specs := make([]experiment.Spec, len(s.specs))
	copy(specs, s.specs)
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return c.JSON(fiber.Map{
		"experiments": specs,
	})
}

// handleRunExperiment runs the experiment in the request body synchronously
// and returns the stored run.
func (s *Server) handleRunExperiment(c *fiber.Ctx) error {
	var spec experiment.Spec
	if err := c.BodyParser(&spec); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid experiment body: " + err.Error(),
		})
	}

	run, err := s.runner.Run(c.UserContext(), spec)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(run)
}

func (s *Server) handleListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultRunLimit)
	if limit <= 0 || limit > maxRunLimit {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 500",
		})
	}

	runs, err := s.repo.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetRun(c *fiber.Ctx) error {
	run, err := s.repo.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(run)
}

// handleGetReport renders a stored run as an aligned text table.
func (s *Server) handleGetReport(c *fiber.Ctx) error {
	run, err := s.repo.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := experiment.Render(&buf, run); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(buf.Bytes())
}
