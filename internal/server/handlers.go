package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/bloomsbot/internal/config"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/pipeline"
	"github.com/abhisek/bloomsbot/internal/store"
	"github.com/abhisek/bloomsbot/internal/syllabus"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

func (s *Server) health(c *gin.Context) {
	success(c, gin.H{"status": "ok"})
}

type generateResponse struct {
	RunID string               `json:"run_id"`
	Paper *paper.ExportedPaper `json:"paper,omitempty"`
	Debug *pipeline.Report     `json:"debug,omitempty"`
}

func (s *Server) generate(c *gin.Context) {
	limit := s.cfg.MaxUploadMB << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	text, source, err := readSyllabus(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.cfg.MaxUploadMB))
			return
		}
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	in := pipeline.Input{Syllabus: text, Source: source}
	if raw := strings.TrimSpace(c.PostForm("target")); raw != "" {
		spec, err := config.ParseTarget([]byte(raw), s.deps.Pipeline.DefaultSpec())
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		in.Spec = &spec
	}

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	out, err := s.deps.Pipeline.Run(ctx, in)
	debug := c.Query("debug") == "1"
	resp := generateResponse{}
	if out != nil {
		resp.RunID = out.RunID
		if out.Result != nil {
			resp.Paper = &out.Paper
		}
		if debug {
			resp.Debug = out.Report
		}
	}
	if err != nil {
		s.generateError(c, err, resp)
		return
	}
	success(c, resp)
}

func (s *Server) generateError(c *gin.Context, err error, resp generateResponse) {
	var (
		infeasible *paper.InfeasibleError
		cfgErr     *paper.ConfigError
	)
	switch {
	case errors.Is(err, pipeline.ErrEmptySyllabus), errors.As(err, &cfgErr):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &infeasible):
		failWith(c, http.StatusUnprocessableEntity, "could not generate paper: "+err.Error(), resp)
	case errors.Is(err, pipeline.ErrNoQuestions),
		errors.Is(err, pipeline.ErrNoValidQuestions),
		errors.Is(err, pipeline.ErrNoClassified):
		failWith(c, http.StatusUnprocessableEntity, err.Error(), resp)
	default:
		_ = c.Error(err)
		s.logger.Error("generation failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to generate paper")
	}
}

// readSyllabus takes the PDF upload when present and the text field
// otherwise.
func readSyllabus(c *gin.Context) (text, source string, err error) {
	fh, err := c.FormFile("syllabus_pdf")
	switch {
	case err == nil:
		if fh.Filename == "" {
			return "", "", errors.New("empty filename")
		}
		f, err := fh.Open()
		if err != nil {
			return "", "", fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", "", fmt.Errorf("read upload: %w", err)
		}
		extracted, err := syllabus.ExtractPDFBytes(data)
		if err != nil {
			return "", "", fmt.Errorf("failed to process PDF: %w", err)
		}
		if strings.TrimSpace(extracted) == "" {
			return "", "", errors.New("extracted syllabus is empty; cannot generate questions")
		}
		return extracted, fh.Filename, nil
	case errors.Is(err, http.ErrMissingFile):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", err
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return "", "", fmt.Errorf("read form: %w", err)
		}
	}

	text = c.PostForm("syllabus_text")
	if strings.TrimSpace(text) == "" {
		return "", "", errors.New("no syllabus uploaded: send syllabus_pdf or syllabus_text")
	}
	return text, "text", nil
}

type paperSummary struct {
	RunID         string          `json:"run_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Outcome       string          `json:"outcome"`
	Source        string          `json:"source"`
	TargetMarks   int             `json:"target_marks"`
	TotalMarks    int             `json:"total_marks"`
	QuestionCount int             `json:"question_count"`
	Paper         json.RawMessage `json:"paper,omitempty"`
}

func summarize(r store.PaperRecord) paperSummary {
	return paperSummary{
		RunID:         r.RunID,
		CreatedAt:     r.CreatedAt,
		Outcome:       r.Outcome,
		Source:        r.Source,
		TargetMarks:   r.TargetMarks,
		TotalMarks:    r.TotalMarks,
		QuestionCount: r.QuestionCount,
		Paper:         r.Body,
	}
}

func (s *Server) listPapers(c *gin.Context) {
	if s.deps.Papers == nil {
		fail(c, http.StatusServiceUnavailable, "paper store is disabled")
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := s.deps.Papers.List(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "failed to list papers")
		return
	}
	out := make([]paperSummary, len(recs))
	for i, r := range recs {
		out[i] = summarize(r)
	}
	success(c, gin.H{"papers": out})
}

func (s *Server) getPaper(c *gin.Context) {
	if s.deps.Papers == nil {
		fail(c, http.StatusServiceUnavailable, "paper store is disabled")
		return
	}
	rec, err := s.deps.Papers.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "failed to load paper")
		return
	}
	success(c, summarize(*rec))
}
