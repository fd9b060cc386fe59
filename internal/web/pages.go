package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/researcher-profile/internal/contact"
)

var errUnknownDegree = errors.New("unknown degree")

// render writes a section as a full page, or as just its fragment when the
// request comes from HTMX.
func (s *Server) render(c *gin.Context, status int, section string, data gin.H) {
	data["nav"] = nav
	data["active"] = section
	data["profile"] = s.Profile
	name := section + ".html"
	if c.GetHeader("HX-Request") == "true" {
		name = section + "-content"
	}
	c.HTML(status, name, data)
}

func (s *Server) profilePage(c *gin.Context) {
	s.render(c, http.StatusOK, "profile", gin.H{"title": "Researcher Profile"})
}

func (s *Server) educationPage(c *gin.Context) {
	label := c.Query("degree")
	data := gin.H{
		"title":    "Education",
		"degrees":  s.Profile.DegreeLabels(),
		"selected": label,
	}
	record, ok := s.Profile.Degree(label)
	if !ok {
		data["error"] = "Unknown degree: " + label
		s.render(c, statusFor(errUnknownDegree), "education", data)
		return
	}
	data["selected"] = record.Label
	data["record"] = record
	s.render(c, http.StatusOK, "education", data)
}

func (s *Server) researchPage(c *gin.Context) {
	s.render(c, http.StatusOK, "research", gin.H{"title": "Research Interests"})
}

func (s *Server) contactPage(c *gin.Context) {
	s.render(c, http.StatusOK, "contact", gin.H{"title": "Contact"})
}

// sendContact answers with a fragment either way so HTMX always swaps it in.
func (s *Server) sendContact(c *gin.Context) {
	msg := contact.Message{
		Name:  c.PostForm("fullName"),
		Email: c.PostForm("email"),
		Body:  c.PostForm("message"),
	}
	if err := msg.Validate(); err != nil {
		s.Metrics.ContactMessages.WithLabelValues("invalid").Inc()
		c.HTML(http.StatusOK, "contact-error", gin.H{"error": err.Error()})
		return
	}
	if err := s.Mailer.Send(c.Request.Context(), msg); err != nil {
		s.Metrics.ContactMessages.WithLabelValues("error").Inc()
		s.Logger.Warn("contact message not delivered", zap.Error(err))
		c.HTML(http.StatusOK, "contact-error", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}
	s.Metrics.ContactMessages.WithLabelValues("ok").Inc()
	c.HTML(http.StatusOK, "contact-success", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}

func (s *Server) privacyData() gin.H {
	return gin.H{
		"title":         "Privacy",
		"tracking":      s.Tracker != nil,
		"retentionDays": int(s.opts.VisitRetention.Hours() / 24),
	}
}

func (s *Server) privacyPage(c *gin.Context) {
	s.render(c, http.StatusOK, "privacy", s.privacyData())
}

// forgetVisitor deletes the visits stored for the caller's address.
func (s *Server) forgetVisitor(c *gin.Context) {
	data := s.privacyData()
	if s.Tracker == nil {
		data["notice"] = "Visitor tracking is disabled, so nothing is stored about you."
		s.render(c, http.StatusOK, "privacy", data)
		return
	}
	n, err := s.Tracker.Forget(c.Request.Context(), c.ClientIP())
	if err != nil {
		s.fail(c, "privacy", data, err)
		return
	}
	data["notice"] = fmt.Sprintf("Removed %d recorded visits.", n)
	s.render(c, http.StatusOK, "privacy", data)
}
