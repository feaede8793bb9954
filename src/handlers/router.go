package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"restaurantfinder/src/token"
)

func NewRouter(f RestaurantFinder, auth *token.Auth) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(RequestLogger)

	router.HandleFunc("/healthz", HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/token", auth.GetToken).Methods(http.MethodPost)

	protected := router.PathPrefix("/restaurants").Subrouter()
	protected.Use(auth.JwtMiddleware)
	protected.HandleFunc("/", HandleRestaurants(f)).Methods(http.MethodGet)
	protected.HandleFunc("/range/", HandleRestaurantsRange(f)).Methods(http.MethodGet)

	return router
}
