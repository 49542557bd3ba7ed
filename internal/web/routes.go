package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.service, s.sessionManager)
	configHandler := handlers.NewConfigHandler(s.config, s.service)
	membersHandler := handlers.NewMembersHandler(s.service)
	recognizeHandler := handlers.NewRecognizeHandler(s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Get("/config", configHandler.Get)

		// Kiosk endpoints
		r.Get("/members", membersHandler.List)
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/recognize/descriptors", recognizeHandler.RecognizeDescriptors)
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Get("/attendance/summary", attendanceHandler.Summary)

		// Administration
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			r.Post("/members", membersHandler.Create)
			r.Post("/members/descriptors", membersHandler.CreateFromDescriptors)
			r.Delete("/members/{name}", membersHandler.Delete)
			r.Post("/attendance", attendanceHandler.Mark)
		})
	})
}
