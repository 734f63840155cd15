package models

// PageData is handed to every template.
type PageData struct {
	Title       string
	Notices     []string
	Error       string
	FieldErrors map[string]string
	Form        map[string]string
	OpenTasks   []Task
	ClosedTasks []Task
	CSRFtoken   string
	IsLoggedIn  bool
	UserName    string
}
