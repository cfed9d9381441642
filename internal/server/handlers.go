// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/intent"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

const (
	defaultHistoryLimit = 50
	defaultLibraryLimit = 20
)

func (s *Server) search(c echo.Context) error {
	req := types.NewSearchRequest("")
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	res, err := s.searcher.Search(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type intentRequest struct {
	Message string `json:"message"`
}

type intentResponse struct {
	types.Intent
	Description string `json:"description"`
}

func (s *Server) parseIntent(c echo.Context) error {
	var req intentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	in := intent.Parse(req.Message)
	return c.JSON(http.StatusOK, intentResponse{Intent: in, Description: intent.Describe(in)})
}

type ragStatusResponse struct {
	Configured bool                `json:"configured"`
	Healthy    bool                `json:"healthy"`
	Error      string              `json:"error,omitempty"`
	Pipeline   *ragPipelineSummary `json:"pipeline,omitempty"`
}

type ragPipelineSummary struct {
	Busy          bool   `json:"busy"`
	Docs          int    `json:"docs"`
	LatestMessage string `json:"latest_message,omitempty"`
}

func (s *Server) ragStatus(c echo.Context) error {
	if s.rag == nil || !s.rag.Configured() {
		return c.JSON(http.StatusOK, ragStatusResponse{})
	}
	ctx := c.Request().Context()
	resp := ragStatusResponse{Configured: true}
	if err := s.rag.Health(ctx); err != nil {
		resp.Error = err.Error()
		return c.JSON(http.StatusOK, resp)
	}
	resp.Healthy = true
	if ps, err := s.rag.PipelineStatus(ctx); err == nil {
		resp.Pipeline = &ragPipelineSummary{Busy: ps.Busy, Docs: ps.DocsCount, LatestMessage: ps.LatestMessage}
	} else {
		s.logger.Warn("reading pipeline status", zap.Error(err))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listProjects(c echo.Context) error {
	projects, err := s.store.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	if projects == nil {
		projects = []types.Project{}
	}
	return c.JSON(http.StatusOK, projects)
}

type createProjectRequest struct {
	Name string `json:"name"`
}

func (s *Server) createProject(c echo.Context) error {
	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return badRequest("project name is required")
	}
	p, err := s.store.CreateProject(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) chatTurn(c echo.Context) error {
	var req types.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	resp, err := s.chat.ProcessMessage(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) chatHistory(c echo.Context) error {
	ctx := c.Request().Context()
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil {
		return err
	}
	if _, err := s.store.GetProject(ctx, c.Param("id")); err != nil {
		return err
	}
	msgs, err := s.store.History(ctx, c.Param("id"), limit)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []types.ChatMessage{}
	}
	return c.JSON(http.StatusOK, msgs)
}

type sessionResponse struct {
	Session types.ResearchSession  `json:"session"`
	History []types.ExplorationLog `json:"history"`
}

func (s *Server) session(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, c.Param("id")); err != nil {
		return err
	}
	rs, err := s.store.LatestSession(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	logs, err := s.store.ExplorationHistory(ctx, rs.ID)
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []types.ExplorationLog{}
	}
	return c.JSON(http.StatusOK, sessionResponse{Session: rs, History: logs})
}

// libraryResponse lists a project's papers with their indices grouped by
// research topic.
type libraryResponse struct {
	Total  int              `json:"total"`
	Papers []types.Source   `json:"papers"`
	Topics map[string][]int `json:"topics"`
}

func (s *Server) listPapers(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, c.Param("id")); err != nil {
		return err
	}
	var (
		papers []types.Source
		err    error
	)
	if status := c.QueryParam("status"); status != "" {
		papers, err = s.store.SourcesByStatus(ctx, c.Param("id"), types.IngestionStatus(status))
	} else {
		papers, err = s.store.ListSources(ctx, c.Param("id"))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLibraryResponse(papers))
}

func newLibraryResponse(papers []types.Source) libraryResponse {
	resp := libraryResponse{Total: len(papers), Papers: papers, Topics: map[string][]int{}}
	if resp.Papers == nil {
		resp.Papers = []types.Source{}
	}
	for _, p := range papers {
		resp.Topics[p.Topic] = append(resp.Topics[p.Topic], p.Index)
	}
	return resp
}

func (s *Server) getPaper(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 1 {
		return badRequest("paper index must be a positive integer")
	}
	paper, err := s.store.SourceByIndex(c.Request().Context(), c.Param("id"), index)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paper)
}

type ingestResponse struct {
	Queued []int `json:"queued"`
}

// ingestPapers queues every pending or failed paper that has a PDF link.
func (s *Server) ingestPapers(c echo.Context) error {
	if s.ingest == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion is not configured")
	}
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, c.Param("id")); err != nil {
		return err
	}

	var todo []types.Source
	for _, status := range []types.IngestionStatus{types.IngestionPending, types.IngestionFailed} {
		papers, err := s.store.SourcesByStatus(ctx, c.Param("id"), status)
		if err != nil {
			return err
		}
		for _, p := range papers {
			if p.PDFURL != "" {
				todo = append(todo, p)
			}
		}
	}

	resp := ingestResponse{Queued: []int{}}
	for _, p := range todo {
		resp.Queued = append(resp.Queued, p.Index)
	}
	if len(todo) > 0 {
		s.ingest.Queue(ctx, todo)
	}
	return c.JSON(http.StatusAccepted, resp)
}

func (s *Server) outline(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.store.GetProject(ctx, c.Param("id")); err != nil {
		return err
	}
	sections, err := s.store.ListOutline(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if sections == nil {
		sections = []types.OutlineSection{}
	}
	return c.JSON(http.StatusOK, sections)
}

func (s *Server) searchLibrary(c echo.Context) error {
	ctx := c.Request().Context()
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return badRequest("query parameter q is required")
	}
	limit, err := queryInt(c, "limit", defaultLibraryLimit)
	if err != nil {
		return err
	}
	if _, err := s.store.GetProject(ctx, c.Param("id")); err != nil {
		return err
	}
	papers, err := s.store.SearchLibrary(ctx, c.Param("id"), q, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLibraryResponse(papers))
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return n, nil
}
