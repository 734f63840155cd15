package handlers

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"taskr/ui"
	"taskr/utils"
)

// Mailer sends the welcome mail after registration.
type Mailer interface {
	SendWelcome(ctx context.Context, name, email string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the dependencies shared by all handlers.
type App struct {
	Config   utils.Config
	Users    utils.UserStore
	Tasks    utils.TaskStore
	Sessions utils.SessionStore

	// Mailer is optional; welcome mails are skipped when nil.
	Mailer Mailer
	// Checks are pinged by the health endpoint.
	Checks map[string]Pinger

	pages  map[string]*template.Template
	static fs.FS
}

func NewApp(cfg utils.Config, users utils.UserStore, tasks utils.TaskStore, sessions utils.SessionStore) (*App, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		return nil, fmt.Errorf("loading static files: %w", err)
	}
	return &App{
		Config:   cfg,
		Users:    users,
		Tasks:    tasks,
		Sessions: sessions,
		pages:    pages,
		static:   static,
	}, nil
}

var pageNames = []string{"login.html", "register.html", "tasks.html"}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"priorities": func() []int {
		return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	},
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(ui.Files, "html/base.html", "html/"+name)
		if err != nil {
			return nil, fmt.Errorf("error loading template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}
