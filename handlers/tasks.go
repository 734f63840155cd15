package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"taskr/models"
	"taskr/utils"

	"github.com/gorilla/mux"
)

const (
	noticeTaskCreated    = "New entry has been created."
	noticeTaskCompleted  = "Task %d has been marked complete."
	noticeTaskDeleted    = "Task %d has been deleted."
	noticeNotOwnerUpdate = "You can only update tasks that belong to you."
	noticeNotOwnerDelete = "You can only delete tasks that belong to you."
	noticeTaskMissing    = "That task does not exist."
	csrfHeader           = "X-CSRF-Token"
	csrfField            = "csrf_token"
)

// TasksHandler lists the current user's open and closed tasks.
func (app *App) TasksHandler(w http.ResponseWriter, r *http.Request) {
	app.renderTasks(w, r, http.StatusOK, models.PageData{})
}

func (app *App) renderTasks(w http.ResponseWriter, r *http.Request, status int, data models.PageData) {
	rc := RequestContextFrom(r)
	open, closed, err := utils.ListTasks(r.Context(), app.Tasks, rc.Session.UserID, app.Config.TaskOrder)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("listing tasks for user %d: %w", rc.Session.UserID, err))
		return
	}

	data.Title = "Tasks"
	data.OpenTasks = open
	data.ClosedTasks = closed
	app.render(w, r, status, "tasks.html", data)
}

// AddTaskHandler receives the add-task form. Invalid input re-renders the
// task list with the form errors.
func (app *App) AddTaskHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	rc := RequestContextFrom(r)
	if app.Config.CSRFEnabled {
		if err := utils.Authorize(rc.Session, submittedToken(r)); err != nil {
			log.Println("Authorization failed:", err)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	name := r.PostFormValue("name")
	dueDate := r.PostFormValue("due_date")
	priority := r.PostFormValue("priority")

	task, err := utils.AddTask(r.Context(), app.Tasks, rc.Session.UserID, name, dueDate, priority)
	if err != nil {
		var verr *utils.ValidationError
		if errors.As(err, &verr) {
			app.renderTasks(w, r, http.StatusOK, models.PageData{
				Error:       verr.Msg,
				FieldErrors: verr.Fields,
				Form:        map[string]string{"name": name, "due_date": dueDate, "priority": priority},
			})
			return
		}
		app.serverError(w, r, err)
		return
	}

	log.Printf("user %d created task %d", rc.Session.UserID, task.ID)
	utils.SetFlash(w, r, noticeTaskCreated)
	http.Redirect(w, r, "/tasks/", http.StatusSeeOther)
}

// CompleteTaskHandler marks one of the user's tasks as closed.
func (app *App) CompleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	err := utils.CompleteTask(r.Context(), app.Tasks, RequestContextFrom(r).Session.UserID, taskID)
	app.finishTaskChange(w, r, err, fmt.Sprintf(noticeTaskCompleted, taskID), noticeNotOwnerUpdate)
}

// DeleteTaskHandler removes one of the user's tasks.
func (app *App) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	err := utils.DeleteTask(r.Context(), app.Tasks, RequestContextFrom(r).Session.UserID, taskID)
	app.finishTaskChange(w, r, err, fmt.Sprintf(noticeTaskDeleted, taskID), noticeNotOwnerDelete)
}

func (app *App) finishTaskChange(w http.ResponseWriter, r *http.Request, err error, success, notOwner string) {
	switch {
	case err == nil:
		utils.SetFlash(w, r, success)
	case errors.Is(err, utils.ErrNotAuthorized):
		utils.SetFlash(w, r, notOwner)
	case errors.Is(err, utils.ErrTaskNotFound):
		utils.SetFlash(w, r, noticeTaskMissing)
	default:
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/tasks/", http.StatusSeeOther)
}

func submittedToken(r *http.Request) string {
	if token := r.PostFormValue(csrfField); token != "" {
		return token
	}
	return r.Header.Get(csrfHeader)
}

func taskIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
