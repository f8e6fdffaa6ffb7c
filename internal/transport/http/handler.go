package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
)

// Handler exposes the quiz platform over a JSON API. It stays thin: all
// rules live in the app services, this layer only decodes, dispatches,
// and maps the error taxonomy to status codes.
type Handler struct {
	identity    *app.IdentityService
	roster      *app.RosterService
	quizzes     *app.QuizService
	submissions *app.SubmissionService
	presence    *app.Tracker
}

func NewHandler(identity *app.IdentityService, roster *app.RosterService, quizzes *app.QuizService, submissions *app.SubmissionService, presence *app.Tracker) *Handler {
	return &Handler{
		identity:    identity,
		roster:      roster,
		quizzes:     quizzes,
		submissions: submissions,
		presence:    presence,
	}
}

// Register wires every route onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/logout", h.logout)
	mux.HandleFunc("GET /api/auth/session", h.session)

	mux.HandleFunc("GET /api/users/active", h.activeUsers)
	mux.HandleFunc("GET /api/teachers", h.listTeachers)

	mux.HandleFunc("GET /api/teachers/{id}/students", h.listStudents)
	mux.HandleFunc("POST /api/teachers/{id}/students", h.addStudent)
	mux.HandleFunc("DELETE /api/teachers/{id}/students/{studentId}", h.removeStudent)
	mux.HandleFunc("GET /api/teachers/{id}/quizzes", h.listByAuthor)

	mux.HandleFunc("GET /api/quizzes", h.listPublished)
	mux.HandleFunc("GET /api/quizzes/active", h.listActive)
	mux.HandleFunc("POST /api/quizzes", h.createQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}", h.getQuiz)
	mux.HandleFunc("PUT /api/quizzes/{id}", h.updateQuiz)

	mux.HandleFunc("POST /api/quizzes/{id}/submissions", h.recordSubmission)
	mux.HandleFunc("GET /api/quizzes/{id}/submissions", h.listByQuiz)
	mux.HandleFunc("GET /api/learners/{id}/submissions", h.listByLearner)
}

type loginRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type authResponse struct {
	Token string               `json:"token"`
	User  domain.PublicProfile `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	profile, err := h.identity.Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeAuth(w, r, http.StatusOK, profile)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid register payload")
		return
	}
	profile, err := h.identity.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeAuth(w, r, http.StatusCreated, profile)
}

func (h *Handler) writeAuth(w http.ResponseWriter, r *http.Request, status int, profile domain.PublicProfile) {
	token, _, err := h.identity.SessionToken(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: profile})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.Logout(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	profile, ok, err := h.identity.RestoreSession(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) activeUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presence.ActiveUsers())
}

func (h *Handler) listTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.roster.ListTeachers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teachers)
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.roster.ListStudents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) addStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"studentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid roster payload")
		return
	}
	if err := h.roster.AddStudent(r.Context(), r.PathValue("id"), req.StudentID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.roster.RemoveStudent(r.Context(), r.PathValue("id"), r.PathValue("studentId")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listByAuthor(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListByAuthor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) listPublished(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListPublished(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListActive(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	actor, err := h.bearerProfile(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req app.CreateQuizInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	quiz, err := h.quizzes.Create(r.Context(), actor.ID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	actor, err := h.bearerProfile(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req app.UpdateQuizInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	quiz, err := h.quizzes.Update(r.Context(), r.PathValue("id"), actor.ID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) recordSubmission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.bearerProfile(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req struct {
		Answers map[string]int `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid submission payload")
		return
	}
	sub, err := h.submissions.Record(r.Context(), r.PathValue("id"), actor.ID, req.Answers)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) listByQuiz(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissions.ListByQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) listByLearner(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissions.ListByLearner(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) bearerProfile(r *http.Request) (domain.PublicProfile, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return domain.PublicProfile{}, domain.ErrInvalidCredentials
	}
	return h.identity.Authenticate(r.Context(), token)
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNoQuestions):
		return http.StatusBadRequest
	}
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
