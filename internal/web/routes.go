package web

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/attendance-dashboard/internal/web/handlers"
	"github.com/kozaktomas/attendance-dashboard/internal/web/middleware"
	"github.com/kozaktomas/attendance-dashboard/internal/web/static"
)

func (s *Server) setupRoutes() {
	svc := s.services

	authHandler := handlers.NewAuthHandler(s.config, s.sessionManager)
	configHandler := handlers.NewConfigHandler(s.config, svc.AnalyticsSource)
	camerasHandler := handlers.NewCamerasHandler(svc.Feed, svc.Selector, svc.Settings, svc.Metrics)
	subjectsHandler := handlers.NewSubjectsHandler(svc.Roster, svc.Settings, svc.Resolver)
	studentsHandler := handlers.NewStudentsHandler(svc.Roster, svc.Backend)
	attendanceHandler := handlers.NewAttendanceHandler(s.config, svc.View, svc.Poller, svc.Backend, svc.Backend)
	snapshotsHandler := handlers.NewSnapshotsHandler(svc.Backend)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics, s.config.Dashboard.Location())

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", svc.Metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			if s.config.Web.AuthEnabled() {
				r.Use(middleware.RequireAuth(s.sessionManager))
			}

			// Long-lived responses
			r.Get("/cameras/{slot}/stream", camerasHandler.Stream)
			r.Get("/cameras/{slot}/overlay/ws", camerasHandler.OverlayWS)
			r.Get("/attendance/events", attendanceHandler.Events)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(requestTimeout))

				r.Get("/config", configHandler.Get)

				// Cameras
				r.Get("/cameras", camerasHandler.List)
				r.Get("/cameras/devices", camerasHandler.Devices)
				r.Get("/cameras/history", camerasHandler.History)
				r.Put("/cameras/{slot}", camerasHandler.Assign)
				r.Get("/cameras/{slot}/overlay", camerasHandler.Overlay)

				// Subjects
				r.Get("/subjects", subjectsHandler.List)
				r.Post("/subjects", subjectsHandler.Create)
				r.Delete("/subjects/{id}", subjectsHandler.Delete)
				r.Get("/subjects/{id}/class-start", subjectsHandler.GetClassStart)
				r.Put("/subjects/{id}/class-start", subjectsHandler.SetClassStart)

				// Students
				r.Get("/students", studentsHandler.List)
				r.Post("/students", studentsHandler.Create)
				r.Put("/students/{id}", studentsHandler.Update)
				r.Delete("/students/{id}", studentsHandler.Delete)
				r.Delete("/students/{id}/faces/{faceId}", studentsHandler.DeleteFace)
				r.Get("/students/{id}/faces/{file}", studentsHandler.FaceImage)

				// Attendance
				r.Get("/attendance/logs", attendanceHandler.Logs)
				r.Post("/attendance/start", attendanceHandler.Start)
				r.Post("/attendance/stop", attendanceHandler.Stop)
				r.Get("/attendance/export", attendanceHandler.Export)
				r.Get("/snapshots/*", snapshotsHandler.Get)

				r.Get("/analytics", analyticsHandler.Get)
			})
		})
	})

	// Serve static files for frontend (SPA)
	s.router.Get("/*", s.serveSPA)
}

var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
	".woff":  "font/woff",
}

// serveSPA serves the single-page dashboard
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if static.HasDist() {
		fs := static.GetFileSystem()
		p := r.URL.Path
		if p == "/" {
			p = "/index.html"
		}

		f, err := fs.Open(p)
		if err == nil {
			defer f.Close()

			stat, err := f.Stat()
			if err == nil && !stat.IsDir() {
				contentType, ok := contentTypes[strings.ToLower(path.Ext(p))]
				if !ok {
					contentType = "application/octet-stream"
				}
				w.Header().Set("Content-Type", contentType)

				// hashed build assets never change
				if strings.HasPrefix(p, "/assets/") {
					w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				}

				w.WriteHeader(http.StatusOK)
				io.Copy(w, f)
				return
			}
		}

		// client-side routes get index.html, missing assets a 404
		if !strings.HasPrefix(p, "/assets/") {
			indexFile, err := fs.Open("/index.html")
			if err == nil {
				defer indexFile.Close()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				io.Copy(w, indexFile)
				return
			}
		}
		http.NotFound(w, r)
		return
	}

	// Fallback: placeholder page when no frontend is built
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Attendance Dashboard</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #10151f; color: #eee; }
        .container { text-align: center; }
        h1 { color: #4fd18b; }
        p { color: #aaa; }
        a { color: #4fd18b; }
        code { background: #1f2633; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Attendance Dashboard</h1>
        <p>Frontend is not built yet. Run <code>make build-web</code> to build the frontend.</p>
        <p>API is available at <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
