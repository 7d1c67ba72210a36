package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/expense"
	"spendlog/internal/models"

	"go.uber.org/zap"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName carries a one-shot status message across a redirect.
	FlashCookieName = "flash"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         *auth.Service
	expenses     *expense.Service
	templateDir  string
	secureCookie bool
	log          *zap.SugaredLogger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authSvc *auth.Service, expSvc *expense.Service, templateDir string, secureCookie bool, log *zap.SugaredLogger) *Handlers {
	return &Handlers{auth: authSvc, expenses: expSvc, templateDir: templateDir, secureCookie: secureCookie, log: log}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// RequireAuth wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		info, err := h.auth.SessionInfo(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		// Rolling session: renew if past halfway point
		// This keeps active users logged in while still expiring inactive sessions
		now := time.Now()
		if info.ExpiresAt.Sub(now) < auth.SessionDuration/2 {
			newExpiresAt := now.Add(auth.SessionDuration)
			if err := h.auth.Renew(cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), UserContextKey, info.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// setFlash stores a one-shot status message shown after the next render.
func (h *Handlers) setFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending status message, if any, and clears it.
func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}

// currentUser resolves the session cookie outside of RequireAuth, for pages
// that render differently for logged-in users.
func (h *Handlers) currentUser(r *http.Request) *models.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := h.auth.CurrentUser(cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

// HomeViewModel holds data for the home page.
type HomeViewModel struct {
	User  *models.User
	Flash string
}

// Home renders the landing page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home.html", HomeViewModel{
		User:  h.currentUser(r),
		Flash: h.popFlash(w, r),
	})
}

// RegisterViewModel holds data for the registration page.
type RegisterViewModel struct {
	User     *models.User
	Username string
	Errors   map[string]string
	Error    string
	Flash    string
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, "register.html", RegisterViewModel{Flash: h.popFlash(w, r)})
}

// Register handles the registration form submission.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render(w, "register.html", RegisterViewModel{Error: "Invalid form submission"})
		return
	}

	username := r.FormValue("username")
	vm := RegisterViewModel{Username: username}

	_, err := h.auth.Register(username, r.FormValue("password"), r.FormValue("confirm_password"))
	switch {
	case err == nil:
		h.setFlash(w, "Registration successful! Please log in.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		vm.Error = "Username already exists. Please choose another."
	case errors.Is(err, auth.ErrPasswordMismatch):
		vm.Errors = map[string]string{"confirm_password": "Passwords do not match"}
	default:
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			vm.Errors = verr.Fields
		} else {
			h.log.Errorw("registration failed", "error", err)
			vm.Error = "An error occurred. Please try again."
		}
	}
	h.render(w, "register.html", vm)
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	User     *models.User
	Username string
	Error    string
	Flash    string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, "login.html", LoginViewModel{Flash: h.popFlash(w, r)})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.render(w, "login.html", LoginViewModel{Username: username, Error: "Username and password are required"})
		return
	}

	token, err := h.auth.Login(username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Errorw("login failed", "error", err)
			h.render(w, "login.html", LoginViewModel{Username: username, Error: "An error occurred. Please try again."})
			return
		}
		h.render(w, "login.html", LoginViewModel{Username: username, Error: "Invalid username or password."})
		return
	}

	h.setSessionCookie(w, token)
	h.setFlash(w, "Login successful!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout ends the session and redirects home.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.auth.Logout(cookie.Value); err != nil {
			h.log.Errorw("logout failed", "error", err)
		}
	}
	h.clearSessionCookie(w)
	h.setFlash(w, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusFound)
}

// ExpenseItem represents an expense in list views.
type ExpenseItem struct {
	models.Expense
	DateLabel string
}

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	User     *models.User
	Expenses []ExpenseItem
	Total    float64
	Flash    string
}

// Dashboard renders the requester's expenses and their total.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expenses, err := h.expenses.List(user.ID)
	if err != nil {
		h.log.Errorw("list expenses failed", "error", err, "user_id", user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	total, err := h.expenses.TotalFor(user.ID)
	if err != nil {
		h.log.Errorw("total expenses failed", "error", err, "user_id", user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, "dashboard.html", DashboardViewModel{
		User:     user,
		Expenses: expenseItems(expenses),
		Total:    total,
		Flash:    h.popFlash(w, r),
	})
}

// ExpensesViewModel is the data passed to the plain expense list template.
type ExpensesViewModel struct {
	User     *models.User
	Expenses []ExpenseItem
	Flash    string
}

// ViewExpenses renders the requester's expenses without the total.
func (h *Handlers) ViewExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	expenses, err := h.expenses.List(user.ID)
	if err != nil {
		h.log.Errorw("list expenses failed", "error", err, "user_id", user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, "view_expenses.html", ExpensesViewModel{
		User:     user,
		Expenses: expenseItems(expenses),
		Flash:    h.popFlash(w, r),
	})
}

func expenseItems(expenses []models.Expense) []ExpenseItem {
	items := make([]ExpenseItem, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, ExpenseItem{Expense: e, DateLabel: e.Date.Format("Jan 02, 2006")})
	}
	return items
}

// ExpenseFormViewModel is the data passed to the add/edit form template.
type ExpenseFormViewModel struct {
	User        *models.User
	IsEdit      bool
	ExpenseID   int64
	Amount      string
	Description string
	Error       string
	Flash       string
}

// AddExpenseForm renders the form to create a new expense.
func (h *Handlers) AddExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "expense_form.html", ExpenseFormViewModel{
		User:  GetUserFromContext(r),
		Flash: h.popFlash(w, r),
	})
}

// AddExpense handles the creation of a new expense.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	amountStr, description, amount, err := parseExpenseForm(r)
	vm := ExpenseFormViewModel{User: user, Amount: amountStr, Description: description}
	if err != nil {
		vm.Error = "Amount must be a number"
		h.render(w, "expense_form.html", vm)
		return
	}

	if _, err := h.expenses.Add(user.ID, amount, description); err != nil {
		h.renderExpenseError(w, r, "expense_form.html", vm, err)
		return
	}

	h.setFlash(w, "Expense added successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// UpdateExpenseForm renders the form to edit an existing expense.
func (h *Handlers) UpdateExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.setFlash(w, "Expense not found.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	exp, err := h.expenses.Get(user.ID, id)
	if err != nil {
		h.redirectExpenseError(w, r, err)
		return
	}

	h.render(w, "expense_form.html", ExpenseFormViewModel{
		User:        user,
		IsEdit:      true,
		ExpenseID:   exp.ID,
		Amount:      strconv.FormatFloat(exp.Amount, 'f', -1, 64),
		Description: exp.Description,
		Flash:       h.popFlash(w, r),
	})
}

// UpdateExpense handles the edit form submission.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.setFlash(w, "Expense not found.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	amountStr, description, amount, err := parseExpenseForm(r)
	vm := ExpenseFormViewModel{User: user, IsEdit: true, ExpenseID: id, Amount: amountStr, Description: description}
	if err != nil {
		vm.Error = "Amount must be a number"
		h.render(w, "expense_form.html", vm)
		return
	}

	if err := h.expenses.Update(user.ID, id, amount, description); err != nil {
		if errors.Is(err, expense.ErrInvalidAmount) || errors.Is(err, expense.ErrDescriptionTooLong) {
			h.renderExpenseError(w, r, "expense_form.html", vm, err)
			return
		}
		h.redirectExpenseError(w, r, err)
		return
	}

	h.setFlash(w, "Expense updated successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// DeleteExpense removes an expense if the requester owns it.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.setFlash(w, "Expense not found.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if err := h.expenses.Delete(user.ID, id); err != nil {
		h.redirectExpenseError(w, r, err)
		return
	}

	h.setFlash(w, "Expense deleted successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// renderExpenseError re-renders a form with a user-visible message for
// validation failures.
func (h *Handlers) renderExpenseError(w http.ResponseWriter, r *http.Request, viewName string, vm ExpenseFormViewModel, err error) {
	switch {
	case errors.Is(err, expense.ErrInvalidAmount):
		vm.Error = "Amount must be a finite number"
	case errors.Is(err, expense.ErrDescriptionTooLong):
		vm.Error = "Description must be at most 200 characters"
	default:
		h.log.Errorw("expense operation failed", "error", err, "path", r.URL.Path)
		vm.Error = "An error occurred. Please try again."
	}
	h.render(w, viewName, vm)
}

// redirectExpenseError sends the user back to the dashboard with a status
// message for not-found and ownership failures.
func (h *Handlers) redirectExpenseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, expense.ErrForbidden):
		h.setFlash(w, "You do not have permission to modify this expense.")
	case errors.Is(err, expense.ErrNotFound):
		h.setFlash(w, "Expense not found.")
	default:
		h.log.Errorw("expense operation failed", "error", err, "path", r.URL.Path)
		h.setFlash(w, "An error occurred. Please try again.")
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func parseExpenseForm(r *http.Request) (amountStr, description string, amount float64, err error) {
	if err := r.ParseForm(); err != nil {
		return "", "", 0, err
	}
	amountStr = r.FormValue("amount")
	description = r.FormValue("description")
	amount, err = strconv.ParseFloat(amountStr, 64)
	return amountStr, description, amount, err
}

func (h *Handlers) render(w http.ResponseWriter, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		h.log.Errorw("template parse failed", "error", err, "view", viewName)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		h.log.Errorw("template execution failed", "error", err, "view", viewName)
	}
}
