package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"expense-api/internal/log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds the options of the HTTP surface that are not handlers.
type RouterConfig struct {
	CORSOrigins []string
	StaticDir   string
	Logger      *log.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.Middleware(logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", log.RequestIDHeader},
			ExposeHeaders:    []string{log.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	api := r.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/auth/login", h.Login)

		protected := api.Group("")
		protected.Use(h.SessionGate())
		{
			protected.GET("/expenses/:userId", h.ListExpenses)
			protected.POST("/expenses", h.CreateExpense)
			protected.PUT("/expenses/:id", h.UpdateExpense)
			protected.DELETE("/expenses/:id", h.DeleteExpense)
			protected.GET("/expense/total/:userId", h.Totals)
			protected.GET("/expense/categories/:userId", h.Categories)
		}
	}

	r.POST("/logout", h.SessionGate(), h.Logout)

	r.NoRoute(staticFallback(cfg.StaticDir))

	return r
}

// staticFallback serves files from dir for unknown GET paths outside /api,
// falling back to dir/index.html so client-side routes resolve.
func staticFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if dir == "" || c.Request.Method != http.MethodGet || strings.HasPrefix(urlPath, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+urlPath)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	}
}
