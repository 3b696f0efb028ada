package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"metro-ticketing/internal/config"
	"metro-ticketing/internal/handlers"
	"metro-ticketing/internal/metrics"
	"metro-ticketing/internal/middleware"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/response"
	"metro-ticketing/internal/services"
)

func Setup(cfg config.Config, svcs *services.Services, logger zerolog.Logger) *mux.Router {
	authHandler := handlers.NewAuthHandler(svcs, logger)
	userHandler := handlers.NewUserHandler(svcs, logger)
	balanceHandler := handlers.NewBalanceHandler(svcs, logger)
	stationHandler := handlers.NewStationHandler(svcs, logger)
	fareHandler := handlers.NewFareHandler(svcs, logger)
	tripHandler := handlers.NewTripHandler(svcs, logger)

	if cfg.UsingDevSecret() {
		logger.Warn().Msg("JWT_SECRET not set, using default key")
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	authenticate := middleware.Authentication(svcs.Auth, logger)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimiter.Middleware())

	// Preflight requests need a matching route for the CORS middleware to run.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequestValidation())

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")

	protectedAuth := auth.PathPrefix("").Subrouter()
	protectedAuth.Use(authenticate)
	protectedAuth.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")

	// /users/profile and friends must be registered ahead of /users/{id}.
	users := api.PathPrefix("/users").Subrouter()
	users.Use(authenticate)
	users.HandleFunc("/profile", userHandler.GetProfile).Methods("GET")
	users.HandleFunc("/profile", userHandler.UpdateProfile).Methods("PUT")
	users.HandleFunc("/password", userHandler.ChangePassword).Methods("PUT")
	users.HandleFunc("/deposit", balanceHandler.Deposit).Methods("POST")
	users.HandleFunc("/balance/history", balanceHandler.GetHistory).Methods("GET")

	adminUsers := users.PathPrefix("").Subrouter()
	adminUsers.Use(adminOnly)
	adminUsers.HandleFunc("", userHandler.GetUsers).Methods("GET")
	adminUsers.HandleFunc("/{id:[0-9]+}", userHandler.GetUser).Methods("GET")
	adminUsers.HandleFunc("/{id:[0-9]+}", userHandler.UpdateUser).Methods("PUT")
	adminUsers.HandleFunc("/{id:[0-9]+}", userHandler.DeleteUser).Methods("DELETE")
	adminUsers.HandleFunc("/{id:[0-9]+}/debit", balanceHandler.Debit).Methods("POST")
	adminUsers.HandleFunc("/{id:[0-9]+}/balance/reconcile", balanceHandler.Reconcile).Methods("GET")

	stations := api.PathPrefix("/stations").Subrouter()
	stations.HandleFunc("", stationHandler.GetStations).Methods("GET")
	stations.HandleFunc("/nearby", stationHandler.GetNearby).Methods("GET")
	stations.HandleFunc("/code/{code}", stationHandler.GetStationByCode).Methods("GET")
	stations.HandleFunc("/{id:[0-9]+}", stationHandler.GetStation).Methods("GET")

	adminStations := stations.PathPrefix("").Subrouter()
	adminStations.Use(authenticate, adminOnly)
	adminStations.HandleFunc("", stationHandler.CreateStation).Methods("POST")
	adminStations.HandleFunc("/{id:[0-9]+}", stationHandler.UpdateStation).Methods("PUT")
	adminStations.HandleFunc("/{id:[0-9]+}", stationHandler.DeleteStation).Methods("DELETE")

	fares := api.PathPrefix("/fares").Subrouter()
	fares.HandleFunc("", fareHandler.GetFares).Methods("GET")
	fares.HandleFunc("/in-between", fareHandler.GetInBetween).Methods("GET")
	fares.HandleFunc("/{id:[0-9]+}", fareHandler.GetFare).Methods("GET")

	adminFares := fares.PathPrefix("").Subrouter()
	adminFares.Use(authenticate, adminOnly)
	adminFares.HandleFunc("", fareHandler.CreateFare).Methods("POST")
	adminFares.HandleFunc("/{id:[0-9]+}", fareHandler.UpdateFare).Methods("PUT")
	adminFares.HandleFunc("/{id:[0-9]+}", fareHandler.DeleteFare).Methods("DELETE")

	trips := api.PathPrefix("/trips").Subrouter()
	trips.HandleFunc("/use/{tripCode}", tripHandler.UseTrip).Methods("POST")

	protectedTrips := trips.PathPrefix("").Subrouter()
	protectedTrips.Use(authenticate)
	protectedTrips.HandleFunc("", tripHandler.IssueTrip).Methods("POST")
	protectedTrips.HandleFunc("/history", tripHandler.GetHistory).Methods("GET")
	protectedTrips.HandleFunc("/unused", tripHandler.GetUnused).Methods("GET")
	protectedTrips.HandleFunc("/{id:[0-9]+}", tripHandler.GetTrip).Methods("GET")
	protectedTrips.HandleFunc("/{id:[0-9]+}/complete", tripHandler.CompleteJourney).Methods("POST")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "Service is healthy", map[string]string{"status": "ok"})
	}).Methods("GET")

	return r
}
