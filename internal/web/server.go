package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hashicorp/go-multierror"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/types"
)

type ContestSource interface {
	GetContestList(ctx context.Context) ([]types.ContestListing, error)
}

type ProfileSource interface {
	FetchProfile(ctx context.Context, platform types.Platform, username string) (*types.PlatformProfile, error)
	FetchAllProfiles(ctx context.Context, username string) (map[types.Platform]*types.PlatformProfile, error)
	UpdateHandles(username string, handles map[types.Platform]string) (*types.UserRecord, error)
}

type Server struct {
	App      *fiber.App
	config   ServerConfig
	contests ContestSource
	profiles ProfileSource
	logger   *slog.Logger
}

type ServerConfig struct {
	Port int
}

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func InitServer(config ServerConfig, contests ContestSource, profiles ProfileSource, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{
		App: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		config:   config,
		contests: contests,
		profiles: profiles,
		logger:   log,
	}

	s.App.Use(recover.New())
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,PUT,OPTIONS",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))
	s.App.Use(s.logRequests)

	s.App.Get("/healthz", s.HandleHealth)

	api := s.App.Group("/api")
	api.Get("/contests", s.HandleContests)
	api.Get("/users/:username/profiles", s.HandleAllProfiles)
	api.Get("/users/:username/profiles/:platform", s.HandleProfile)
	api.Put("/users/:username/handles", s.HandleUpdateHandles)

	return s
}

func (s *Server) Listen() error {
	s.logger.Info("listening", "port", s.config.Port)
	return s.App.Listen(fmt.Sprintf(":%d", s.config.Port))
}

func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return err
}

func (s *Server) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(APIResponse{Success: true})
}

func (s *Server) HandleContests(c *fiber.Ctx) error {
	list, err := s.contests.GetContestList(c.UserContext())
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(APIResponse{Success: true, Data: list})
}

func (s *Server) HandleProfile(c *fiber.Ctx) error {
	platform, err := types.ParsePlatform(c.Params("platform"))
	if err != nil {
		return s.sendError(c, err)
	}

	profile, err := s.profiles.FetchProfile(c.UserContext(), platform, c.Params("username"))
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(APIResponse{Success: true, Data: profile})
}

// HandleAllProfiles answers with whatever platforms succeeded. Failures are
// listed under errors; the request only fails when the account is missing.
func (s *Server) HandleAllProfiles(c *fiber.Ctx) error {
	profiles, err := s.profiles.FetchAllProfiles(c.UserContext(), c.Params("username"))
	if err != nil && profiles == nil {
		return s.sendError(c, err)
	}

	resp := APIResponse{Success: true, Data: profiles}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
	} else if err != nil {
		resp.Errors = []string{err.Error()}
	}
	return c.JSON(resp)
}

func (s *Server) HandleUpdateHandles(c *fiber.Ctx) error {
	body := map[string]string{}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(http.StatusBadRequest).JSON(APIResponse{
			Error:   "invalid_body",
			Message: "expected a JSON object of platform to handle",
		})
	}

	handles := map[types.Platform]string{}
	for name, handle := range body {
		platform, err := types.ParsePlatform(name)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(APIResponse{
				Error:   "unknown_platform",
				Message: err.Error(),
			})
		}
		handles[platform] = handle
	}

	user, err := s.profiles.UpdateHandles(c.Params("username"), handles)
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(APIResponse{Success: true, Data: user})
}

func (s *Server) sendError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(APIResponse{
		Error:   code,
		Message: err.Error(),
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, types.ErrUnknownPlatform):
		return http.StatusNotFound, "unknown_platform"
	case errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, types.ErrUpstreamUnavailable), errors.Is(err, types.ErrParse):
		return http.StatusBadGateway, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
