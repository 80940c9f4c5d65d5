package api

import (
	"io"
	"log"
	"net/http"

	"github.com/LJTian/BlogCrosspost/internal/crosspost"
	"github.com/LJTian/BlogCrosspost/internal/storage"
	"github.com/gin-gonic/gin"
)

const maxExpandBodyBytes = 1 << 20 // 1MB

// SourceRegistry 站点登记，未配置数据库时为 nil
type SourceRegistry interface {
	ListSources() ([]storage.Source, error)
	EnsureSource(url, name string) (*storage.Source, error)
	RemoveSource(url string) error
}

type Discoverer interface {
	Discover(siteURL string) (string, error)
}

type Server struct {
	svc      *crosspost.Service
	discover Discoverer
	sources  SourceRegistry
}

func NewServer(svc *crosspost.Service, discover Discoverer, sources SourceRegistry) *Server {
	return &Server{svc: svc, discover: discover, sources: sources}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/render", s.render)
		v1.POST("/expand", s.expand)
		v1.GET("/discover", s.discoverAPI)
		v1.GET("/sources", s.listSources)
		v1.POST("/sources", s.addSource)
		v1.DELETE("/sources", s.removeSource)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// render 查询参数与短代码属性同名，例如 /api/v1/render?url=example.com&number=5
func (s *Server) render(c *gin.Context) {
	params := make(map[string]string)
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	out := s.svc.Render(c.Request.Context(), params)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// expand 请求体是含短代码的正文，返回替换后的 HTML
func (s *Server) expand(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxExpandBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "read body failed",
		})
		return
	}
	out := s.svc.Expand(c.Request.Context(), string(body))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

func (s *Server) discoverAPI(c *gin.Context) {
	u, err := crosspost.NormalizeSourceURL(c.Query("url"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_url",
			"message": err.Error(),
		})
		return
	}
	root, err := s.discover.Discover(u)
	if err != nil {
		log.Printf("api: discover %s: %v", u, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    "discover_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    gin.H{"url": u, "apiRoot": root},
	})
}

func (s *Server) requireSources(c *gin.Context) bool {
	if s.sources != nil {
		return true
	}
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "not_configured",
		"message": "source registry is not configured",
	})
	return false
}

func (s *Server) listSources(c *gin.Context) {
	if !s.requireSources(c) {
		return
	}
	list, err := s.sources.ListSources()
	if err != nil {
		log.Printf("api: list sources: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    list,
	})
}

type addSourceRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

func (s *Server) addSource(c *gin.Context) {
	if !s.requireSources(c) {
		return
	}
	var req addSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "invalid json",
		})
		return
	}
	u, err := crosspost.NormalizeSourceURL(req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_url",
			"message": err.Error(),
		})
		return
	}
	src, err := s.sources.EnsureSource(u, req.Name)
	if err != nil {
		log.Printf("api: add source %s: %v", u, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    src,
	})
}

func (s *Server) removeSource(c *gin.Context) {
	if !s.requireSources(c) {
		return
	}
	u, err := crosspost.NormalizeSourceURL(c.Query("url"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_url",
			"message": err.Error(),
		})
		return
	}
	if err := s.sources.RemoveSource(u); err != nil {
		log.Printf("api: remove source %s: %v", u, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
	})
}
