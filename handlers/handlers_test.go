package handlers_test

import (
	"context"
	"errors"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"taskr/handlers"
	"taskr/models"
	"taskr/utils"
	"taskr/utils/utilstest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testServer struct {
	*httptest.Server
	app   *handlers.App
	store *utilstest.MemoryStore
}

func newTestServer(t *testing.T, csrf bool) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := utilstest.NewMemoryStore()
	cfg := utils.Config{
		SessionTTL:  time.Hour,
		CSRFEnabled: csrf,
		TaskOrder:   utils.OrderByID,
	}
	app, err := handlers.NewApp(cfg, store, store, utils.NewRedisStore(client))
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}

	srv := httptest.NewServer(app.Routes())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, app: app, store: store}
}

// browser returns a client with its own cookie jar, one per simulated user.
func (ts *testServer) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

type page struct {
	status int
	path   string
	body   string
	header http.Header
}

func read(t *testing.T, resp *http.Response, err error) page {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return page{status: resp.StatusCode, path: resp.Request.URL.Path, body: string(body), header: resp.Header}
}

func (ts *testServer) get(t *testing.T, c *http.Client, path string) page {
	t.Helper()
	resp, err := c.Get(ts.URL + path)
	return read(t, resp, err)
}

func (ts *testServer) post(t *testing.T, c *http.Client, path string, form url.Values) page {
	t.Helper()
	resp, err := c.PostForm(ts.URL+path, form)
	return read(t, resp, err)
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]*)"`)

// formToken loads the page at path and returns the token in its form.
func (ts *testServer) formToken(t *testing.T, c *http.Client, path string) string {
	t.Helper()
	m := csrfInput.FindStringSubmatch(ts.get(t, c, path).body)
	if m == nil || m[1] == "" {
		t.Fatalf("page %s has no csrf token", path)
	}
	return html.UnescapeString(m[1])
}

func (ts *testServer) register(t *testing.T, c *http.Client, name string) page {
	t.Helper()
	return ts.post(t, c, "/register/", url.Values{
		"csrf_token": {ts.formToken(t, c, "/register/")},
		"name":       {name},
		"email":      {strings.ToLower(name) + "@x.org"},
		"password":   {"pw"},
		"confirm":    {"pw"},
	})
}

func (ts *testServer) login(t *testing.T, c *http.Client, name string) page {
	t.Helper()
	return ts.post(t, c, "/", url.Values{
		"csrf_token": {ts.formToken(t, c, "/")},
		"name":       {name},
		"password":   {"pw"},
	})
}

// signUp registers and logs in a fresh user on its own client.
func (ts *testServer) signUp(t *testing.T, name string) *http.Client {
	t.Helper()
	c := ts.browser(t)
	ts.register(t, c, name)
	if p := ts.login(t, c, name); p.path != "/tasks/" {
		t.Fatalf("login as %s landed on %s", name, p.path)
	}
	return c
}

func (ts *testServer) addTask(t *testing.T, c *http.Client, name string) page {
	t.Helper()
	return ts.post(t, c, "/add/", url.Values{
		"name":     {name},
		"due_date": {"2026-12-01"},
		"priority": {"3"},
	})
}

func assertContains(t *testing.T, p page, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(p.body, w) {
			t.Errorf("page %s missing %q", p.path, w)
		}
	}
}

func assertNotContains(t *testing.T, p page, unwanted string) {
	t.Helper()
	if strings.Contains(p.body, unwanted) {
		t.Errorf("page %s unexpectedly contains %q", p.path, unwanted)
	}
}

func TestLoginPage(t *testing.T) {
	ts := newTestServer(t, false)
	p := ts.get(t, ts.browser(t), "/")

	if p.status != http.StatusOK {
		t.Fatalf("GET / status = %d", p.status)
	}
	assertContains(t, p, "Please login to access your task list")
	if ct := p.header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestLoginRejects(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.browser(t)
	ts.register(t, c, "John")

	tests := []struct {
		name     string
		user     string
		password string
		want     string
	}{
		{name: "Unregistered user", user: "foo", password: "bar", want: "Invalid credentials. Please try again"},
		{name: "Wrong password", user: "John", password: "nope", want: "Invalid credentials. Please try again"},
		{name: "Empty fields", user: "", password: "", want: "Invalid credentials. Please try again"},
		{name: "Blank name", user: "  ", password: "pw", want: "Invalid credentials. Please try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ts.post(t, c, "/", url.Values{"name": {tt.user}, "password": {tt.password}})
			if p.path != "/" {
				t.Errorf("landed on %s, want /", p.path)
			}
			assertContains(t, p, tt.want, "Please login to access your task list")
			assertNotContains(t, p, "Welcome!")
		})
	}
}

func TestRegisterThenLogin(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.browser(t)

	p := ts.get(t, c, "/register/")
	assertContains(t, p, "Please register to access the task list")

	p = ts.register(t, c, "John")
	if p.path != "/" {
		t.Fatalf("register landed on %s, want /", p.path)
	}
	assertContains(t, p, "Thanks for registering. Please login.")

	p = ts.login(t, c, "John")
	if p.path != "/tasks/" {
		t.Fatalf("login landed on %s, want /tasks/", p.path)
	}
	assertContains(t, p, "Welcome!", "Add a new task:", "Signed in as John")

	// The notice is shown once.
	p = ts.get(t, c, "/tasks/")
	assertNotContains(t, p, "Welcome!")

	// A logged in user visiting the login page goes straight to the list.
	p = ts.get(t, c, "/")
	if p.path != "/tasks/" {
		t.Errorf("GET / while logged in landed on %s", p.path)
	}
}

func TestRegisterRejects(t *testing.T) {
	ts := newTestServer(t, false)
	ts.register(t, ts.browser(t), "John")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "Duplicate name",
			form: url.Values{"name": {"John"}, "email": {"new@x.org"}, "password": {"pw"}, "confirm": {"pw"}},
			want: "That username and/or email already exists.",
		},
		{
			name: "Duplicate email",
			form: url.Values{"name": {"Jim"}, "email": {"john@x.org"}, "password": {"pw"}, "confirm": {"pw"}},
			want: "That username and/or email already exists.",
		},
		{
			name: "Passwords differ",
			form: url.Values{"name": {"Jim"}, "email": {"jim@x.org"}, "password": {"pw"}, "confirm": {"wp"}},
			want: "Passwords must match.",
		},
		{
			name: "Missing fields",
			form: url.Values{"name": {"Jim"}},
			want: utils.MsgFieldRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ts.post(t, ts.browser(t), "/register/", tt.form)
			if p.status != http.StatusOK || p.path != "/register/" {
				t.Errorf("status %d on %s, want 200 on /register/", p.status, p.path)
			}
			assertContains(t, p, tt.want)
		})
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, false)

	anon := ts.browser(t)
	p := ts.get(t, anon, "/logout/")
	if p.path != "/" {
		t.Errorf("logout landed on %s, want /", p.path)
	}
	assertNotContains(t, p, "Goodbye!")

	c := ts.signUp(t, "John")
	p = ts.get(t, c, "/logout/")
	assertContains(t, p, "Goodbye!")

	p = ts.get(t, c, "/tasks/")
	if p.path != "/" {
		t.Errorf("GET /tasks/ after logout landed on %s", p.path)
	}
	assertContains(t, p, "You need to login first")

	p = ts.get(t, c, "/logout/")
	assertNotContains(t, p, "Goodbye!")
}

func TestLoginRequired(t *testing.T) {
	ts := newTestServer(t, false)
	owner := ts.signUp(t, "John")
	ts.addTask(t, owner, "Write report")

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "List tasks", method: http.MethodGet, path: "/tasks/"},
		{name: "Add task", method: http.MethodPost, path: "/add/"},
		{name: "Complete task", method: http.MethodGet, path: "/complete/1/"},
		{name: "Delete task", method: http.MethodGet, path: "/delete/1/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ts.browser(t)
			var p page
			if tt.method == http.MethodPost {
				p = ts.addTask(t, c, "Sneaky")
			} else {
				p = ts.get(t, c, tt.path)
			}
			if p.path != "/" {
				t.Errorf("landed on %s, want /", p.path)
			}
			assertContains(t, p, "You need to login first")
		})
	}

	if n := ts.store.TaskCount(); n != 1 {
		t.Errorf("TaskCount() = %d, want 1", n)
	}
	task, ok := ts.store.Task(1)
	if !ok || !task.IsOpen() {
		t.Errorf("task 1 = %+v, %v; want it open and present", task, ok)
	}
}

func TestAddTask(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.signUp(t, "John")

	p := ts.addTask(t, c, "Write report")
	if p.path != "/tasks/" {
		t.Fatalf("add landed on %s", p.path)
	}
	assertContains(t, p, "New entry has been created.", "Write report", "2026-12-01")

	task, ok := ts.store.Task(1)
	if !ok {
		t.Fatal("task 1 not stored")
	}
	if task.Name != "Write report" || task.Priority != 3 || task.Status != models.StatusOpen {
		t.Errorf("stored task = %+v", task)
	}
}

func TestAddTaskValidation(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.signUp(t, "John")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "Missing due date",
			form: url.Values{"name": {"Write report"}, "due_date": {""}, "priority": {"3"}},
			want: utils.MsgFieldRequired,
		},
		{
			name: "Bad date",
			form: url.Values{"name": {"Write report"}, "due_date": {"tomorrow"}, "priority": {"3"}},
			want: "Not a valid date value",
		},
		{
			name: "Priority out of range",
			form: url.Values{"name": {"Write report"}, "due_date": {"2026-12-01"}, "priority": {"11"}},
			want: "Priority must be a number from 1 to 10.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ts.post(t, c, "/add/", tt.form)
			if p.status != http.StatusOK || p.path != "/add/" {
				t.Errorf("status %d on %s, want 200 on /add/", p.status, p.path)
			}
			assertContains(t, p, tt.want, "Write report")
		})
	}

	if n := ts.store.TaskCount(); n != 0 {
		t.Errorf("TaskCount() = %d, want 0", n)
	}
}

func TestCompleteAndDeleteTask(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.signUp(t, "John")
	ts.addTask(t, c, "Write report")

	p := ts.get(t, c, "/complete/1/")
	assertContains(t, p, "Task 1 has been marked complete.")
	if task, _ := ts.store.Task(1); task.IsOpen() {
		t.Error("task 1 still open after completion")
	}

	p = ts.get(t, c, "/delete/1/")
	assertContains(t, p, "Task 1 has been deleted.")
	if _, ok := ts.store.Task(1); ok {
		t.Error("task 1 still stored after deletion")
	}

	p = ts.get(t, c, "/delete/1/")
	assertContains(t, p, "That task does not exist.")
}

func TestOtherUsersTasks(t *testing.T) {
	ts := newTestServer(t, false)
	owner := ts.signUp(t, "John")
	ts.addTask(t, owner, "Write report")
	other := ts.signUp(t, "Jane")

	p := ts.get(t, other, "/tasks/")
	assertNotContains(t, p, "Write report")

	p = ts.get(t, other, "/complete/1/")
	assertContains(t, p, "You can only update tasks that belong to you.")

	p = ts.get(t, other, "/delete/1/")
	assertContains(t, p, "You can only delete tasks that belong to you.")

	task, ok := ts.store.Task(1)
	if !ok || !task.IsOpen() {
		t.Errorf("task 1 = %+v, %v; want it open and present", task, ok)
	}
}

func TestNonNumericTaskID(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.signUp(t, "John")

	if p := ts.get(t, c, "/complete/abc/"); p.status != http.StatusNotFound {
		t.Errorf("GET /complete/abc/ status = %d, want 404", p.status)
	}
}

func TestAddTaskCSRF(t *testing.T) {
	ts := newTestServer(t, true)
	c := ts.signUp(t, "John")

	p := ts.addTask(t, c, "No token")
	if p.status != http.StatusForbidden {
		t.Errorf("add without token status = %d, want 403", p.status)
	}

	token := ts.formToken(t, c, "/tasks/")

	p = ts.post(t, c, "/add/", url.Values{
		"csrf_token": {token},
		"name":       {"With token"},
		"due_date":   {"2026-12-01"},
		"priority":   {"3"},
	})
	assertContains(t, p, "New entry has been created.")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/add/", strings.NewReader(url.Values{
		"name":     {"Header token"},
		"due_date": {"2026-12-01"},
		"priority": {"3"},
	}.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", token)
	resp, err := c.Do(req)
	p = read(t, resp, err)
	assertContains(t, p, "New entry has been created.")

	if n := ts.store.TaskCount(); n != 2 {
		t.Errorf("TaskCount() = %d, want 2", n)
	}
}

func TestLoginAndRegisterCSRF(t *testing.T) {
	ts := newTestServer(t, true)

	tests := []struct {
		name string
		path string
		form url.Values
	}{
		{
			name: "Register",
			path: "/register/",
			form: url.Values{"name": {"Jim"}, "email": {"jim@x.org"}, "password": {"pw"}, "confirm": {"pw"}},
		},
		{
			name: "Login",
			path: "/",
			form: url.Values{"name": {"Jim"}, "password": {"pw"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" without token", func(t *testing.T) {
			if p := ts.post(t, ts.browser(t), tt.path, tt.form); p.status != http.StatusForbidden {
				t.Errorf("POST %s status = %d, want 403", tt.path, p.status)
			}
		})
		t.Run(tt.name+" with another browser's token", func(t *testing.T) {
			form := url.Values{"csrf_token": {ts.formToken(t, ts.browser(t), tt.path)}}
			for k, v := range tt.form {
				form[k] = v
			}
			if p := ts.post(t, ts.browser(t), tt.path, form); p.status != http.StatusForbidden {
				t.Errorf("POST %s status = %d, want 403", tt.path, p.status)
			}
		})
	}

	if exists, _ := ts.store.UserExists(context.Background(), "Jim", "jim@x.org"); exists {
		t.Fatal("forged registration created a user")
	}

	c := ts.browser(t)
	assertContains(t, ts.register(t, c, "Jim"), "Thanks for registering. Please login.")
	assertContains(t, ts.login(t, c, "Jim"), "Welcome!")
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.browser(t)

	ts.app.Checks = map[string]handlers.Pinger{"postgres": ts.store, "redis": fakePinger{}}
	p := ts.get(t, c, "/healthz")
	if p.status != http.StatusOK || strings.TrimSpace(p.body) != "ok" {
		t.Errorf("healthy: status %d body %q", p.status, p.body)
	}

	ts.app.Checks["redis"] = fakePinger{err: errors.New("connection refused")}
	p = ts.get(t, c, "/healthz")
	if p.status != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: status %d, want 503", p.status)
	}
	assertContains(t, p, "redis: connection refused")
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeMailer) SendWelcome(_ context.Context, name, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, name+" <"+email+">")
	return f.err
}

func (f *fakeMailer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestWelcomeMail(t *testing.T) {
	ts := newTestServer(t, false)
	mailer := &fakeMailer{}
	ts.app.Mailer = mailer

	ts.register(t, ts.browser(t), "John")
	if got := mailer.calls(); len(got) != 1 || got[0] != "John <john@x.org>" {
		t.Errorf("welcome mails = %v", got)
	}

	// A failing mailer does not block registration.
	mailer.mu.Lock()
	mailer.err = errors.New("sendgrid down")
	mailer.mu.Unlock()
	p := ts.register(t, ts.browser(t), "Jane")
	assertContains(t, p, "Thanks for registering. Please login.")
}

func TestRequestIDAndStatic(t *testing.T) {
	ts := newTestServer(t, false)
	c := ts.browser(t)

	a := ts.get(t, c, "/")
	b := ts.get(t, c, "/")
	idA, idB := a.header.Get("X-Request-ID"), b.header.Get("X-Request-ID")
	if idA == "" || idA == idB {
		t.Errorf("request ids = %q, %q; want distinct non-empty", idA, idB)
	}

	css := ts.get(t, c, "/static/css/main.css")
	if css.status != http.StatusOK {
		t.Errorf("GET /static/css/main.css status = %d", css.status)
	}
}
