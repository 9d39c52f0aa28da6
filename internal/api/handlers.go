package api

import (
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bravetux/greetcard/internal/compose"
	"github.com/bravetux/greetcard/internal/draft"
	"github.com/bravetux/greetcard/internal/export"
	"github.com/bravetux/greetcard/internal/imagefetch"
	"github.com/bravetux/greetcard/internal/listing"
	"github.com/bravetux/greetcard/internal/preview"
)

// Server carries the handler dependencies.
type Server struct {
	Source   listing.Source
	Client   *http.Client
	Renderer *compose.Renderer
	Exporter *export.Exporter
	Drafts   *draft.Store
	Hub      *preview.Hub
	Logger   *zap.Logger
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listImagesHandler returns this month's background image candidates.
// An empty list is a success; missing server configuration is not.
func (s *Server) listImagesHandler(c *gin.Context) {
	images, err := s.Source.List(c.Request.Context())
	if err != nil {
		s.Logger.Error("image listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if images == nil {
		images = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// proxyHandler re-serves a remote image with permissive CORS and an
// immutable cache directive so the renderer can read its pixels.
func (s *Server) proxyHandler(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image url is required"})
		return
	}

	res, err := imagefetch.Get(c.Request.Context(), s.Client, target)
	if err != nil {
		s.Logger.Warn("image proxy fetch failed", zap.String("url", target), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to proxy image: %v", err)})
		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, res.Body)
}

type composeRequest struct {
	Spec  compose.Spec `json:"spec"`
	Width int          `json:"width"`
}

// composeHandler renders a spec synchronously and returns the PNG.
func (s *Server) composeHandler(c *gin.Context) {
	var req composeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Spec.ApplyDefaults()
	if err := req.Spec.Validate(); err != nil {
		respondValidation(c, err)
		return
	}

	img, err := s.Renderer.RenderAt(c.Request.Context(), &req.Spec, req.Width)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := export.EncodePNG(img)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func respondValidation(c *gin.Context, err error) {
	var verrs compose.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "fields": verrs})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// previewCreateHandler starts a live preview session.
func (s *Server) previewCreateHandler(c *gin.Context) {
	var req composeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, session := s.Hub.Create()
	if req.Width > 0 {
		session.Resize(req.Width)
	}
	if err := session.SetSpec(&req.Spec); err != nil {
		s.Hub.Delete(id)
		respondValidation(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": id})
}

func (s *Server) session(c *gin.Context) (*preview.Session, bool) {
	session, ok := s.Hub.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown preview session"})
		return nil, false
	}
	return session, true
}

// previewImageHandler serves the latest completed render, or 202 while
// the first render is still in flight.
func (s *Server) previewImageHandler(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	img, ready := session.Image()
	if !ready {
		c.JSON(http.StatusAccepted, gin.H{"status": "rendering"})
		return
	}
	data, err := export.EncodePNG(img)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// previewUpdateHandler installs a new spec; the superseded render is
// cancelled and can never apply.
func (s *Server) previewUpdateHandler(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req composeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Width > 0 {
		session.Resize(req.Width)
	}
	if err := session.SetSpec(&req.Spec); err != nil {
		respondValidation(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// previewResizeHandler remeasures: the client reports the background's
// new rendered width and the band follows it.
func (s *Server) previewResizeHandler(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req struct {
		Width int `json:"width"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Width <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width must be positive"})
		return
	}
	session.Resize(req.Width)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) previewDeleteHandler(c *gin.Context) {
	s.Hub.Delete(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// exportSaveHandler rasterizes the session and triggers a PNG download
// with a deterministic filename.
func (s *Server) exportSaveHandler(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	err := session.Export(c.Request.Context(), func(img image.Image) error {
		data, err := export.EncodePNG(img)
		if err != nil {
			return err
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SaveFilename))
		c.Data(http.StatusOK, "image/png", data)
		return nil
	})
	if err != nil {
		s.respondExportError(c, err)
	}
}

// exportShareHandler rasterizes the session, caches the artifact, and
// returns a share handle with its QR endpoint.
func (s *Server) exportShareHandler(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	err := session.Export(c.Request.Context(), func(img image.Image) error {
		handle, err := s.Exporter.Share(img)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, handle)
		return nil
	})
	if err != nil {
		s.respondExportError(c, err)
	}
}

func (s *Server) respondExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, preview.ErrExportBusy), errors.Is(err, preview.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrShareUnsupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		s.Logger.Error("export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) shareGetHandler(c *gin.Context) {
	if s.Exporter.Store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": export.ErrShareUnsupported.Error()})
		return
	}
	data, err := s.Exporter.Store.Get(c.Param("id"))
	if errors.Is(err, export.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) shareQRHandler(c *gin.Context) {
	data, err := s.Exporter.ShareQR(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) draftGetHandler(c *gin.Context) {
	if s.Drafts == nil {
		c.JSON(http.StatusOK, gin.H{"draft": nil})
		return
	}
	values, err := s.Drafts.Load(draft.DefaultName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": values})
}

func (s *Server) draftPutHandler(c *gin.Context) {
	if s.Drafts == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "draft storage is not configured"})
		return
	}
	var values map[string]any
	if err := c.BindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Drafts.Save(draft.DefaultName, values); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
