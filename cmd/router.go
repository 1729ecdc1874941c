package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/AO-Miko/Discord-Bot/internal/status"
)

func setupRouter(statusHandler *status.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(statusHandler.RateLimit)

	router.HandleFunc("/status", statusHandler.Status).Methods(http.MethodGet)
	router.HandleFunc("/metrics", statusHandler.Metrics).Methods(http.MethodGet)

	return router
}
