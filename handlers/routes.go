package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes builds the router. Every task route sits behind requireLogin.
func (app *App) Routes() http.Handler {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/", app.LoginHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/register/", app.RegisterHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/logout/", app.LogOutHandler).Methods(http.MethodGet)

	router.HandleFunc("/tasks/", app.requireLogin(app.TasksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/add/", app.requireLogin(app.AddTaskHandler)).Methods(http.MethodPost)
	router.HandleFunc("/complete/{id:[0-9]+}/", app.requireLogin(app.CompleteTaskHandler)).Methods(http.MethodGet)
	router.HandleFunc("/delete/{id:[0-9]+}/", app.requireLogin(app.DeleteTaskHandler)).Methods(http.MethodGet)

	router.HandleFunc("/healthz", app.HealthHandler).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static", http.FileServer(http.FS(app.static))))

	return app.logRequests(router)
}
