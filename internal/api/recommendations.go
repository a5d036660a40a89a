package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"course-planner/internal/ai"
	"course-planner/internal/keywords"
	"course-planner/internal/recommend"
	"course-planner/internal/store"
)

var errHistoryDisabled = errors.New("run history is disabled")

func (s *Server) handleRecommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	interests := keywords.Interests(req.Interests, req.SurveyAnswers, generatorFor(req.Weighted))
	credential := firstNonEmpty(req.APIKey, c.GetHeader("X-Goog-Api-Key"), s.defaultAPIKey)

	records, err := s.service.Recommend(c.Request.Context(), interests, req.CompletedCourses, credential)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			logrus.WithError(err).Warn("recommendation failed")
		}
		s.renderError(c, status, err)
		return
	}

	resp := RecommendResponse{
		Interests: strings.TrimSpace(interests),
		Courses:   coursesFromRecords(records),
	}
	if len(resp.Courses) == 0 {
		resp.Message = recommend.MsgNoCourses
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRationale(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	msg, ok := s.service.Explain(code)
	if !ok {
		status := http.StatusNotFound
		if code == "" {
			status = http.StatusBadRequest
		}
		s.renderError(c, status, errors.New(msg))
		return
	}
	c.JSON(http.StatusOK, RationaleResponse{Code: code, Rationale: msg})
}

func (s *Server) handleSurvey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"answers": keywords.Answers})
}

func (s *Server) handleKeywords(c *gin.Context) {
	var req KeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	words := generatorFor(req.Weighted).Generate(req.Answers)
	if words == nil {
		words = []string{}
	}
	c.JSON(http.StatusOK, KeywordsResponse{
		Keywords:  words,
		Interests: strings.Join(words, ", "),
	})
}

func (s *Server) handlePopular(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	minCount, _ := strconv.Atoi(c.Query("min"))

	rows, err := s.db.PopularCourses(c.Request.Context(), limit, minCount)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]PopularCourseDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, PopularCourseDTO{Code: row.Code, Name: row.Name, Total: row.Total})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	offset, limit := parsePage(c)
	runs, total, err := s.db.ListRuns(c.Request.Context(), offset, limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		items = append(items, RunFromModel(run))
	}
	c.JSON(http.StatusOK, RunsResponse{Items: items, Total: total})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	run, err := s.db.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			s.renderError(c, http.StatusNotFound, err)
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, RunFromModel(*run))
}

func generatorFor(weighted bool) keywords.Generator {
	if weighted {
		return keywords.WeightedGenerator{}
	}
	return keywords.DefaultSuggester{}
}

// statusForError maps pipeline failures onto HTTP status codes.
func statusForError(err error) int {
	var upstream *ai.UpstreamError
	var transport *ai.TransportError
	switch {
	case errors.Is(err, ai.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.As(err, &transport):
		if transport.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
