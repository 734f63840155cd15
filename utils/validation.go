package utils

import (
	netmail "net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MsgFieldRequired     = "This field is required"
	MsgAllFieldsRequired = "All fields are required. Please try again."

	maxNameLength     = 25
	maxPasswordLength = 72 // bcrypt ignores input beyond this
	maxTaskNameLength = 255
	minPriority       = 1
	maxPriority       = 10
)

var dueDateLayouts = []string{"2006-01-02", "01/02/2006"}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func ValidateEmail(email string) error {
	_, err := netmail.ParseAddress(email)

	return err
}

func SamePassword(password string, confirmedPassword string) bool {
	return password == confirmedPassword
}

// ValidateRegistration checks the register form. Fields are trimmed except
// the passwords.
func ValidateRegistration(name, email, password, confirm string) error {
	verr := newValidationError(MsgAllFieldsRequired)
	for field, v := range map[string]string{
		"name":     strings.TrimSpace(name),
		"email":    strings.TrimSpace(email),
		"password": password,
		"confirm":  confirm,
	} {
		if v == "" {
			verr.add(field, MsgFieldRequired)
		}
	}
	if !verr.empty() {
		return verr
	}

	if utf8.RuneCountInString(strings.TrimSpace(name)) > maxNameLength {
		verr.Msg = "Usernames must be at most 25 characters."
		verr.add("name", verr.Msg)
		return verr
	}
	if ValidateEmail(strings.TrimSpace(email)) != nil {
		verr.Msg = "Invalid email address."
		verr.add("email", verr.Msg)
		return verr
	}
	if len(password) > maxPasswordLength {
		verr.Msg = "Passwords must be at most 72 bytes."
		verr.add("password", verr.Msg)
		return verr
	}
	if !SamePassword(password, confirm) {
		verr.Msg = "Passwords must match."
		verr.add("confirm", verr.Msg)
		return verr
	}
	return nil
}

// TaskInput is a validated add-task form.
type TaskInput struct {
	Name     string
	DueDate  time.Time
	Priority int
}

func ValidateTaskInput(name, dueDate, priority string) (TaskInput, error) {
	name = strings.TrimSpace(name)
	dueDate = strings.TrimSpace(dueDate)
	priority = strings.TrimSpace(priority)

	verr := newValidationError(MsgAllFieldsRequired)
	if name == "" {
		verr.add("name", MsgFieldRequired)
	}
	if dueDate == "" {
		verr.add("due_date", MsgFieldRequired)
	}
	if priority == "" {
		verr.add("priority", MsgFieldRequired)
	}
	if !verr.empty() {
		return TaskInput{}, verr
	}

	input := TaskInput{Name: name}
	if utf8.RuneCountInString(name) > maxTaskNameLength {
		verr.Msg = "Task names must be at most 255 characters."
		verr.add("name", verr.Msg)
	}
	d, ok := parseDueDate(dueDate)
	if !ok {
		verr.Msg = "Invalid due date. Please use YYYY-MM-DD."
		verr.add("due_date", "Not a valid date value")
	}
	input.DueDate = d
	p, err := strconv.Atoi(priority)
	if err != nil || p < minPriority || p > maxPriority {
		verr.Msg = "Priority must be a number from 1 to 10."
		verr.add("priority", verr.Msg)
	}
	input.Priority = p
	if !verr.empty() {
		return TaskInput{}, verr
	}
	return input, nil
}

func parseDueDate(s string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
