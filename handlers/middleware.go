package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"taskr/models"
	"taskr/utils"

	"github.com/google/uuid"
)

const (
	noticeLoginFirst = "You need to login first"
	requestIDHeader  = "X-Request-ID"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// logRequests attaches a RequestContext with a fresh request ID and logs one
// line per request.
func (app *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := &RequestContext{ID: uuid.NewString()}
		w.Header().Set(requestIDHeader, rc.ID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, withRequestContext(r, rc))

		var userID int64
		if rc.Session != nil {
			userID = rc.Session.UserID
		}
		log.Printf("%s %s %s %d %s user=%d", rc.ID, r.Method, r.URL.Path, rec.status, time.Since(start), userID)
	})
}

// currentSession loads the session named by the request's cookie.
func (app *App) currentSession(r *http.Request) (*models.Session, error) {
	st, err := r.Cookie(utils.SessionCookie)
	if err != nil || st.Value == "" {
		return nil, utils.ErrSessionNotFound
	}
	return app.Sessions.GetSession(r.Context(), st.Value)
}

// requireLogin guards next behind an active session. Without one the client
// is sent to the login page and next never runs.
func (app *App) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := app.currentSession(r)
		if err != nil {
			if !errors.Is(err, utils.ErrSessionNotFound) {
				log.Println("error loading session:", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if utils.CookieExists(r, utils.SessionCookie) {
				utils.ClearSessionCookie(w, app.Config.CookieSecure)
			}
			utils.SetFlash(w, r, noticeLoginFirst)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		rc := RequestContextFrom(r)
		rc.Session = session
		if err := app.Sessions.UpdateLastActivity(r.Context(), session.SessionToken); err != nil {
			log.Println("Error updating last activity in Redis:", err)
		}
		next(w, withRequestContext(r, rc))
	}
}
