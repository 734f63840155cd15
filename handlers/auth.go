package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"taskr/models"
	"taskr/utils"
)

const (
	noticeInvalidCredentials = "Invalid credentials. Please try again"
	noticeWelcome            = "Welcome!"
	noticeGoodbye            = "Goodbye!"
	noticeRegistered         = "Thanks for registering. Please login."
	noticeDuplicateUser      = "That username and/or email already exists."

	mailTimeout = 10 * time.Second
)

// LoginHandler serves the login form on GET and signs the user in on POST.
func (app *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		app.loginSubmit(w, r)
		return
	}

	if session, err := app.currentSession(r); err == nil && session != nil {
		http.Redirect(w, r, "/tasks/", http.StatusSeeOther)
		return
	}
	app.render(w, r, http.StatusOK, "login.html", models.PageData{Title: "Login", CSRFtoken: app.formToken(w, r)})
}

func (app *App) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	if !app.checkFormToken(w, r) {
		return
	}

	req := utils.LoginRequest{
		Name:      r.PostFormValue("name"),
		Password:  r.PostFormValue("password"),
		UserAgent: utils.GetUserAgent(r),
		IPAddress: utils.GetIP(r),
	}
	data := models.PageData{Title: "Login", Form: map[string]string{"name": req.Name}, CSRFtoken: app.formToken(w, r)}

	session, err := utils.LoginUser(r.Context(), app.Users, app.Sessions, req, app.Config.SessionTTL)
	if err != nil {
		var verr *utils.ValidationError
		switch {
		case errors.As(err, &verr):
			data.Error = verr.Msg
			data.FieldErrors = verr.Fields
		case errors.Is(err, utils.ErrInvalidCredentials):
			data.Error = noticeInvalidCredentials
		default:
			app.serverError(w, r, err)
			return
		}
		app.render(w, r, http.StatusOK, "login.html", data)
		return
	}

	// A fresh login replaces whatever session the browser held before.
	if old, err := r.Cookie(utils.SessionCookie); err == nil && old.Value != "" {
		if _, err := utils.LogoutUser(r.Context(), app.Sessions, old.Value); err != nil {
			log.Println("error ending previous session:", err)
		}
	}

	utils.SetSessionCookie(w, session.SessionToken, app.Config.SessionTTL, app.Config.CookieSecure)
	utils.SetFlash(w, r, noticeWelcome)
	http.Redirect(w, r, "/tasks/", http.StatusSeeOther)
}

// RegisterHandler serves the registration form on GET and creates the
// account on POST.
func (app *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	data := models.PageData{Title: "Register", CSRFtoken: app.formToken(w, r)}
	if r.Method != http.MethodPost {
		app.render(w, r, http.StatusOK, "register.html", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	if !app.checkFormToken(w, r) {
		return
	}
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	data.Form = map[string]string{"name": name, "email": email}

	user, err := utils.RegisterUser(r.Context(), app.Users, name, email, r.PostFormValue("password"), r.PostFormValue("confirm"))
	if err != nil {
		var verr *utils.ValidationError
		switch {
		case errors.As(err, &verr):
			data.Error = verr.Msg
			data.FieldErrors = verr.Fields
		case errors.Is(err, utils.ErrDuplicateUser):
			data.Error = noticeDuplicateUser
		default:
			app.serverError(w, r, err)
			return
		}
		app.render(w, r, http.StatusOK, "register.html", data)
		return
	}

	if app.Mailer != nil {
		ctx, cancel := context.WithTimeout(r.Context(), mailTimeout)
		if err := app.Mailer.SendWelcome(ctx, user.Name, user.Email); err != nil {
			log.Println("error sending welcome email to user: ", user.Email, " |error:", err)
		}
		cancel()
	}

	utils.SetFlash(w, r, noticeRegistered)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogOutHandler ends the current session, if any, and returns to the login
// page.
func (app *App) LogOutHandler(w http.ResponseWriter, r *http.Request) {
	var token string
	if st, err := r.Cookie(utils.SessionCookie); err == nil {
		token = st.Value
	}

	existed, err := utils.LogoutUser(r.Context(), app.Sessions, token)
	if err != nil {
		log.Printf("Failed to delete session: %v", err)
	}
	if token != "" {
		utils.ClearSessionCookie(w, app.Config.CookieSecure)
	}
	if existed {
		utils.SetFlash(w, r, noticeGoodbye)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *App) formToken(w http.ResponseWriter, r *http.Request) string {
	token, err := utils.EnsureFormToken(w, r, app.Config.CookieSecure)
	if err != nil {
		log.Println("error issuing form token:", err)
	}
	return token
}

// checkFormToken guards the login and registration forms, which are posted
// before any session exists.
func (app *App) checkFormToken(w http.ResponseWriter, r *http.Request) bool {
	if !app.Config.CSRFEnabled {
		return true
	}
	if err := utils.CheckFormToken(r, submittedToken(r)); err != nil {
		log.Println("Form token check failed:", err)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}
