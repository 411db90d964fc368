package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/errors"
	"github.com/fumiya-kume/secpatch/pkg/metrics"
	"github.com/fumiya-kume/secpatch/pkg/version"
)

const errInvalidJSONPayload = "invalid JSON payload"

// handleScan returns the findings for a fragment as a JSON array. An empty
// fragment yields an empty array.
func (s *Server) handleScan(c *fiber.Ctx) error {
	var req ScanRequest
	if err := c.BodyParser(&req); err != nil {
		s.log.Debug("failed to bind scan request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errInvalidJSONPayload})
	}

	findings, err := s.scan.Findings(req.Code)
	if err != nil {
		s.log.Warn("scan failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if findings == nil {
		findings = []types.Finding{}
	}
	return c.Status(fiber.StatusOK).JSON(findings)
}

// handlePatch patches a fragment. Pipeline failures are reported in the body
// with the original text, matching the per-fragment contract.
func (s *Server) handlePatch(c *fiber.Ctx) error {
	var req PatchRequest
	if err := c.BodyParser(&req); err != nil {
		s.log.Debug("failed to bind patch request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errInvalidJSONPayload})
	}

	families, err := req.Validate()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	p, err := s.pipelineFor(families)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	key := variant(p, s.opts.Pipeline)

	if s.opts.Cache != nil {
		res, ok, err := s.opts.Cache.Get(c.UserContext(), key, req.Code)
		switch {
		case err != nil:
			s.opts.Metrics.ObserveCache(metrics.CacheError)
			s.logCacheError("lookup", err)
		case ok:
			s.opts.Metrics.ObserveCache(metrics.CacheHit)
			return c.Status(fiber.StatusOK).JSON(patchResponse(res, p.Families(), true))
		default:
			s.opts.Metrics.ObserveCache(metrics.CacheMiss)
		}
	}

	start := time.Now()
	res := p.Patch(req.Code)
	s.opts.Metrics.ObserveResult(res, time.Since(start))

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Put(c.UserContext(), key, res); err != nil {
			s.logCacheError("store", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(patchResponse(res, p.Families(), false))
}

// logCacheError logs recoverable cache errors at warn level and any other
// cache error at error level
func (s *Server) logCacheError(op string, err error) {
	if errors.IsRecoverable(err) {
		s.log.Warn("cache %s failed, serving from the pipeline: %v", op, err)
		return
	}
	s.log.Error("cache %s failed: %v", op, err)
}

func patchResponse(res types.PatchResult, families []types.Family, cached bool) PatchResponse {
	out := PatchResponse{
		Patched:     res.Patched,
		Modified:    res.Modified,
		Families:    families,
		Outcomes:    res.Outcomes,
		Diagnostics: res.Diagnostics,
		Cached:      cached,
	}
	if out.Outcomes == nil {
		out.Outcomes = []types.Outcome{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(version.GetInfo())
}
