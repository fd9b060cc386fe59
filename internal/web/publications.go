package web

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/researcher-profile/internal/metrics"
	"github.com/Zachkp/researcher-profile/internal/publications"
	"github.com/Zachkp/researcher-profile/internal/session"
)

var (
	errNoFile  = errors.New("choose a CSV file to upload")
	errNotText = errors.New("file is not CSV text")
)

const sniffLen = 512

// receiveUpload reads the multipart "file" field, ingests it and replaces the
// session's table. Any attempt that reaches the file discards the previous
// table, so a failed upload never leaves stale data on screen.
func (s *Server) receiveUpload(c *gin.Context) (*session.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			s.Metrics.UploadsTotal.WithLabelValues(metrics.ResultTooLarge).Inc()
			return nil, &http.MaxBytesError{Limit: s.opts.MaxUploadBytes}
		}
		return nil, errNoFile
	}

	ctx := c.Request.Context()
	id := session.ID(c)
	if err := s.Store.Delete(ctx, id); err != nil {
		return nil, err
	}

	table, err := ingestFile(fh)
	if err != nil {
		result := metrics.ResultParseError
		if errors.Is(err, errNotText) {
			result = metrics.ResultRejected
		}
		s.Metrics.UploadsTotal.WithLabelValues(result).Inc()
		s.Logger.Info("upload rejected",
			zap.String("file", fh.Filename),
			zap.Int64("size", fh.Size),
			zap.Error(err),
		)
		return nil, err
	}

	upload := &session.Upload{
		FileName:   fh.Filename,
		Size:       fh.Size,
		UploadedAt: time.Now(),
		Table:      table,
	}
	if err := s.Store.Put(ctx, id, upload); err != nil {
		return nil, err
	}
	s.Metrics.UploadsTotal.WithLabelValues(metrics.ResultOK).Inc()
	s.Metrics.RowsIngested.Observe(float64(table.Len()))
	return upload, nil
}

// ingestFile sniffs the first bytes so binary files are refused before the
// CSV reader sees them.
func ingestFile(fh *multipart.FileHeader) (*publications.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &publications.ParseError{Err: err}
	}
	head = head[:n]
	if n > 0 && !isText(head) {
		return nil, &publications.ParseError{Err: errNotText}
	}
	return publications.Ingest(io.MultiReader(bytes.NewReader(head), f))
}

func isText(head []byte) bool {
	for mt := mimetype.Detect(head); mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func (s *Server) publicationsPage(c *gin.Context) {
	keyword := c.Query("q")
	data := gin.H{"title": "Publications", "keyword": keyword}

	upload, err := s.Store.Get(c.Request.Context(), session.ID(c))
	switch {
	case errors.Is(err, session.ErrNotFound):
	case err != nil:
		s.fail(c, "publications", data, err)
		return
	default:
		view := publications.Browse(upload.Table, keyword)
		s.Metrics.ObserveFilter(keyword, view.Shown)
		data["upload"] = upload
		data["view"] = view
	}
	s.render(c, http.StatusOK, "publications", data)
}

func (s *Server) uploadPublications(c *gin.Context) {
	if _, err := s.receiveUpload(c); err != nil {
		s.fail(c, "publications", gin.H{"title": "Publications"}, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/publications")
}

func (s *Server) clearPublications(c *gin.Context) {
	if err := s.Store.Delete(c.Request.Context(), session.ID(c)); err != nil {
		s.fail(c, "publications", gin.H{"title": "Publications"}, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/publications")
}

// fail renders section with an error notice. Internal errors are logged and
// shown generically.
func (s *Server) fail(c *gin.Context, section string, data gin.H, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusRequestEntityTooLarge {
		msg = "File is too large to upload."
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.String("section", section), zap.Error(err))
		msg = "Something went wrong. Please try again."
	}
	data["error"] = msg
	s.render(c, status, section, data)
}
