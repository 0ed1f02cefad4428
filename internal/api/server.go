// Package api exposes the translation service over HTTP.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/konnyaku/konnyaku/internal/modelstore"
	"github.com/konnyaku/konnyaku/internal/translate"
)

// TranslationService is the surface the HTTP layer needs from the
// translation core.
type TranslationService interface {
	Translate(ctx context.Context, req translate.Request) (translate.Result, error)
	Status() translate.Status
	EnsureDownloaded(ctx context.Context) (string, error)
	Initialize(ctx context.Context) error
	Model() modelstore.Descriptor
	Directions() []translate.Direction
}

var _ TranslationService = (*translate.Service)(nil)

type Server struct {
	service TranslationService
}

func NewServer(service TranslationService) *Server {
	return &Server{service: service}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/translate", s.handleTranslate)
	e.GET("/v1/languages", s.handleLanguages)
	e.GET("/v1/model/status", s.handleModelStatus)
	e.POST("/v1/model/download", s.handleModelDownload)
	e.POST("/v1/model/load", s.handleModelLoad)
}

func (s *Server) handleTranslate(c *echo.Context) error {
	req, err := decodeJSON[TranslateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "malformed request body: "+err.Error())
	}

	res, err := s.service.Translate(c.Request().Context(), translate.Request{
		Text:      req.Text,
		Direction: translate.Direction(req.Direction),
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	stopReason := "eos"
	if res.Stats.HitTokenLimit {
		stopReason = "token_limit"
	}
	return c.JSON(http.StatusOK, TranslateResponse{
		RequestID:   res.RequestID,
		Direction:   res.Direction.String(),
		Translation: res.Text,
		Stats: TranslateStats{
			PromptTokens:    res.Stats.PromptTokens,
			TokensGenerated: res.Stats.TokensGenerated,
			DurationMS:      res.Stats.Duration.Milliseconds(),
			HitTokenLimit:   res.Stats.HitTokenLimit,
			StopReason:      stopReason,
		},
	})
}

func (s *Server) handleLanguages(c *echo.Context) error {
	dirs := s.service.Directions()
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = d.String()
	}
	return c.JSON(http.StatusOK, LanguagesResponse{Directions: out})
}

func (s *Server) handleModelStatus(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.statusResponse())
}

func (s *Server) handleModelDownload(c *echo.Context) error {
	if _, err := s.service.EnsureDownloaded(c.Request().Context()); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, s.statusResponse())
}

func (s *Server) handleModelLoad(c *echo.Context) error {
	if err := s.service.Initialize(c.Request().Context()); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, s.statusResponse())
}

func (s *Server) statusResponse() ModelStatusResponse {
	desc := s.service.Model()
	st := s.service.Status()
	return ModelStatusResponse{
		Name:       desc.Name,
		FileName:   desc.FileName,
		Downloaded: st.Downloaded,
		Loaded:     st.Loaded(),
		State:      st.State.String(),
		GPU:        st.GPU,
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
