package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"

	"github.com/papercomputeco/chronicle/api/records"
	"github.com/papercomputeco/chronicle/api/search"
	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/utils"
	"github.com/papercomputeco/chronicle/pkg/vector"
)

const ownerLocal = "owner_id"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// QueryRequest is the body of POST /v1/search/query.
type QueryRequest struct {
	Question string `json:"question"`
}

// DirectSearchRequest is the body of POST /v1/search/direct.
type DirectSearchRequest struct {
	Query string `json:"query"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	VectorAvailable bool   `json:"vector_available"`
}

// requireOwner rejects /v1 requests that don't identify an owner.
func (s *Server) requireOwner(c *fiber.Ctx) error {
	owner := strings.TrimSpace(c.Get(OwnerHeader))
	if owner == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: OwnerHeader + " header is required",
		})
	}

	c.Locals(ownerLocal, fiberutils.CopyString(owner))
	return c.Next()
}

func ownerID(c *fiber.Ctx) string {
	owner, _ := c.Locals(ownerLocal).(string)
	return owner
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	available := false
	if s.config.Orchestrator != nil {
		available = s.config.Orchestrator.IsAvailable()
	}

	return c.JSON(HealthResponse{
		Status:          "ok",
		Version:         utils.Build().Version,
		VectorAvailable: available,
	})
}

// handleCreateRecord handles POST /v1/records.
func (s *Server) handleCreateRecord(c *fiber.Ctx) error {
	var in records.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	rec, err := s.config.Coordinator.Create(c.Context(), ownerID(c), in)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}

// handleListRecords handles GET /v1/records.
func (s *Server) handleListRecords(c *fiber.Ctx) error {
	list, err := s.config.Coordinator.List(c.Context(), ownerID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	if list == nil {
		list = []*record.Record{}
	}

	return c.JSON(list)
}

// handleDeleteRecord handles DELETE /v1/records/:id.
func (s *Server) handleDeleteRecord(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	if err := s.config.Coordinator.Delete(c.Context(), id, ownerID(c)); err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// handleSearchRecords handles GET /v1/records/search.
// Query parameters:
//   - query (required): the search query text
//   - limit (optional, default 5): number of results to return
func (s *Server) handleSearchRecords(c *fiber.Ctx) error {
	if s.config.Orchestrator == nil {
		return searchNotConfigured(c)
	}

	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter is required"})
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	out, err := s.config.Orchestrator.Search(c.Context(), query, ownerID(c), limit)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(out)
}

// handleQuery handles POST /v1/search/query.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	if s.config.Orchestrator == nil {
		return searchNotConfigured(c)
	}

	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	out, err := s.config.Orchestrator.Query(c.Context(), req.Question, ownerID(c))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(out)
}

// handleDirectSearch handles POST /v1/search/direct.
func (s *Server) handleDirectSearch(c *fiber.Ctx) error {
	if s.config.Orchestrator == nil {
		return searchNotConfigured(c)
	}

	var req DirectSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	hits, err := s.config.Orchestrator.Direct(c.Context(), req.Query, ownerID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	if hits == nil {
		hits = []vector.Hit{}
	}

	return c.JSON(hits)
}

// handleAvailability handles POST /v1/search/availability.
func (s *Server) handleAvailability(c *fiber.Ctx) error {
	if s.config.Orchestrator == nil {
		return searchNotConfigured(c)
	}

	return c.JSON(fiber.Map{
		"available": s.config.Orchestrator.CheckAvailability(c.Context()),
	})
}

func searchNotConfigured(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error: "search is not configured",
	})
}

// writeError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, record.ErrValidation), errors.Is(err, search.ErrInvalidQuery):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, record.ErrNotFoundOrUnauthorized):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "record not found"})
	case errors.Is(err, search.ErrSearchUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "search is temporarily unavailable"})
	default:
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
}
