package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/researcher-profile/internal/publications"
	"github.com/Zachkp/researcher-profile/internal/session"
)

type publicationsResponse struct {
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	publications.View
}

func newPublicationsResponse(u *session.Upload, keyword string) publicationsResponse {
	return publicationsResponse{
		FileName:   u.FileName,
		Size:       u.Size,
		UploadedAt: u.UploadedAt,
		View:       publications.Browse(u.Table, keyword),
	}
}

func (s *Server) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.Logger.Error("api request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) apiPublications(c *gin.Context) {
	upload, err := s.Store.Get(c.Request.Context(), session.ID(c))
	if err != nil {
		s.apiError(c, err)
		return
	}
	resp := newPublicationsResponse(upload, c.Query("q"))
	s.Metrics.ObserveFilter(resp.Keyword, resp.Shown)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) apiUploadPublications(c *gin.Context) {
	upload, err := s.receiveUpload(c)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPublicationsResponse(upload, ""))
}

var errTrackingDisabled = errors.New("visitor tracking is disabled")

func (s *Server) apiStats(c *gin.Context) {
	if s.Tracker == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errTrackingDisabled.Error()})
		return
	}
	stats, err := s.Tracker.Stats(c.Request.Context())
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
