package handler

import "github.com/julienschmidt/httprouter"

func (h *ContactHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/contacts", h.Create)
	router.GET("/api/v1/contacts", h.GetAll)
	router.POST("/api/v1/contacts/fix", h.FixBatch)
	router.GET("/api/v1/contacts/id/:id", h.GetByID)
	router.GET("/api/v1/contacts/id/:id/preview", h.Preview)
	router.POST("/api/v1/contacts/id/:id/fix", h.Fix)
	router.GET("/api/v1/contacts/phone/:phone", h.GetByPhone)
}
