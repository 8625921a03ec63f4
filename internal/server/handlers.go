package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KaramelBytes/candlechat/internal/chart"
	"github.com/KaramelBytes/candlechat/internal/conversation"
	"github.com/KaramelBytes/candlechat/internal/present"
)

type sessionView struct {
	ID    string              `json:"id"`
	State conversation.State  `json:"state"`
	Turns []conversation.Turn `json:"turns"`
}

func viewOf(s *conversation.Session) sessionView {
	turns := s.Turns()
	if turns == nil {
		turns = []conversation.Turn{}
	}
	return sessionView{ID: s.ID(), State: s.State(), Turns: turns}
}

type submitRequest struct {
	Text string `json:"text"`
}

type submitResponse struct {
	Session sessionView     `json:"session"`
	Reply   present.Display `json:"reply"`
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) session(c *gin.Context) (*conversation.Session, bool) {
	sess, err := s.cfg.Sessions.Get(c.Param("id"))
	if err != nil {
		abort(c, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) syncSessionGauge() {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetSessions(s.cfg.Sessions.Len())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"demo":     s.cfg.Demo,
		"rows":     s.cfg.Dataset.Len(),
		"sessions": s.cfg.Sessions.Len(),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.cfg.Sessions.Create()
	s.syncSessionGauge()
	c.JSON(http.StatusCreated, viewOf(sess))
}

func (s *Server) handleGetSession(c *gin.Context) {
	if sess, ok := s.session(c); ok {
		c.JSON(http.StatusOK, viewOf(sess))
	}
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.cfg.Sessions.Delete(c.Param("id")); err != nil {
		abort(c, http.StatusNotFound, err)
		return
	}
	s.syncSessionGauge()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSubmit(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	reply, err := sess.Submit(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, conversation.ErrBusy):
		abort(c, http.StatusConflict, err)
		return
	case err != nil:
		abort(c, http.StatusInternalServerError, err)
		return
	case reply == nil:
		// blank question
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, submitResponse{Session: viewOf(sess), Reply: reply.Display})
}

func (s *Server) handleReset(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		abort(c, http.StatusConflict, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) window(c *gin.Context) (chart.Window, bool) {
	limit := s.cfg.ChartLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			abort(c, http.StatusBadRequest, errors.New("limit must be an integer"))
			return chart.Window{}, false
		}
		limit = n
	}
	w, err := chart.ParseWindow(c.Query("from"), c.Query("to"), limit)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return chart.Window{}, false
	}
	return w, true
}

func (s *Server) handleChartJSON(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, chart.FromDataset(s.cfg.Dataset, w))
}

func (s *Server) handleChartHTML(c *gin.Context) {
	w, ok := s.window(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderHTML(&buf, chart.FromDataset(s.cfg.Dataset, w)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chart.ErrEmpty) {
			status = http.StatusNotFound
		}
		abort(c, status, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
