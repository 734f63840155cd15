package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// HealthHandler pings every configured dependency.
func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(app.Checks))
	for name := range app.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	for _, name := range names {
		if err := app.Checks[name].Ping(r.Context()); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if len(failures) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, strings.Join(failures, "\n"))
		return
	}
	fmt.Fprintln(w, "ok")
}
