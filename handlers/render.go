package handlers

import (
	"bytes"
	"log"
	"net/http"

	"taskr/models"
	"taskr/utils"
)

// render executes a page into a buffer first so a template error still
// yields a clean 500.
func (app *App) render(w http.ResponseWriter, r *http.Request, status int, page string, data models.PageData) {
	tmpl, ok := app.pages[page]
	if !ok {
		log.Println("unknown template:", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rc := RequestContextFrom(r)
	if rc.Session != nil {
		data.IsLoggedIn = true
		data.UserName = rc.Session.UserName
		data.CSRFtoken = rc.Session.CSRFToken
	}
	data.Notices = append(utils.PopFlashes(w, r), data.Notices...)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		log.Println("Error rendering template:", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (app *App) serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("%s internal error: %v", RequestContextFrom(r).ID, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
