package controllers

import (
	"net/http"
	"time"
)

// HomeController serves the API description and the health check.
type HomeController struct {
	version string
	started time.Time
}

func NewHomeController(version string) *HomeController {
	return &HomeController{version: version, started: time.Now()}
}

func (hc *HomeController) Index(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"name":    "blogapi",
		"version": hc.version,
		"endpoints": map[string]string{
			"auth":     "/api/auth/{register,login,me}",
			"posts":    "/api/posts",
			"comments": "/api/posts/{id}/comments",
			"votes":    "/api/posts/{id}/vote",
			"search":   "/api/search?q=",
			"health":   "/ping",
			"metrics":  "/metrics",
		},
	})
}

func (hc *HomeController) Ping(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(hc.started).Round(time.Second).String(),
	})
}
