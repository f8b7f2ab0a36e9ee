package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/liamroyal/etsy-software/internal/middleware"
	"github.com/liamroyal/etsy-software/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware бэк-офиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/me", h.Me)
			r.With(custommiddleware.RequireAdmin).Post("/users", h.RegisterUser)

			r.Route("/orders", func(r chi.Router) {
				r.Use(custommiddleware.RequirePermission(model.PermissionViewDashboard))

				r.Get("/", h.ListOrders)
				r.With(custommiddleware.RequireAdmin).Post("/status", h.SetOrdersStatus)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetOrder)
					r.Get("/breakdown", h.GetOrderBreakdown)
					r.Post("/fulfill", h.FulfillOrder)
					r.Post("/refund", h.RefundOrder)
					r.Post("/flag", h.FlagOrder)
					r.Post("/resolve", h.ResolveOrder)
				})
			})

			r.Route("/finance", func(r chi.Router) {
				r.Use(custommiddleware.RequirePermission(model.PermissionViewDashboard))

				r.Get("/stats", h.GetStats)
				r.Get("/analytics", h.GetAnalytics)
				r.Get("/validation", h.GetValidation)
				r.Get("/health", h.GetHealth)
			})

			r.Route("/products", func(r chi.Router) {
				r.Use(custommiddleware.RequirePermission(model.PermissionViewProducts))

				r.Get("/", h.ListProducts)

				r.Group(func(r chi.Router) {
					r.Use(custommiddleware.RequirePermission(model.PermissionManageProducts))

					r.Post("/", h.CreateProduct)
					r.Put("/{id}", h.UpdateProduct)
					r.Delete("/{id}", h.DeleteProduct)
				})
			})

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", h.ListNotes)
				r.Post("/", h.CreateNote)
				r.Delete("/{id}", h.CompleteNote)
			})

			r.Route("/tracking", func(r chi.Router) {
				r.Get("/", h.ListTracking)
				r.With(custommiddleware.RequireAdmin).Post("/upload", h.UploadTracking)
				r.Put("/{number}", h.UpdateTracking)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
