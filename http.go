package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutor.chat/auth"
	"tutor.chat/dispatch"
	"tutor.chat/models"
	"tutor.chat/providers"
	"tutor.chat/session"
	"tutor.chat/speech"
	"tutor.chat/store"
)

// completionDispatcher is the slice of dispatch.Dispatcher the handlers use.
type completionDispatcher interface {
	Dispatch(ctx context.Context, chain []providers.Config, transcript []providers.Message) (*dispatch.Result, error)
}

// Shared handler state, wired by main (and by tests).
var (
	linkStore     *store.Store
	sessions      session.Store
	llm           completionDispatcher
	providerChain []providers.Config
	jwtSecret     []byte
	speechClient  *speech.Client
)

// refineSystemPrompt frames the prompt-improvement helper offered to teachers
// while they author a lesson link.
const refineSystemPrompt = "You improve instructional prompts written by teachers. " +
	"Rewrite the prompt you are given to be clearer, more specific, and better structured for guiding a tutoring conversation. " +
	"Keep the teacher's intent and subject unchanged. Reply with the improved prompt only, no commentary."

// newMux registers every route.
func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/register", handleRegister)
	mux.HandleFunc("/api/login", handleLogin)
	mux.HandleFunc("/api/me", handleMe)
	mux.HandleFunc("/api/links", handleLinks)
	mux.HandleFunc("/api/links/", handleLink)
	mux.HandleFunc("/api/chat/start", handleChatStart)
	mux.HandleFunc("/api/chat/", handleChatMessage)
	mux.HandleFunc("/api/refine", handleRefine)
	mux.HandleFunc("/api/speech", handleSpeech)
	mux.HandleFunc("/health", handleHealth)
	return mux
}

// corsPreflight applies the CORS headers and answers OPTIONS. Returns true
// when the request was a preflight and is already handled.
func corsPreflight(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[writeJSON] Encode failed: %v", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Unrecognized errors are a
// 500 with a generic body so internals never leak to students.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, models.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	case errors.Is(err, models.ErrNotFound), errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, models.ErrDuplicateAccount):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "account already exists"})
	case errors.Is(err, session.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session busy, try again"})
	case errors.Is(err, dispatch.ErrExhausted):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "all tutors are busy, try again shortly"})
	default:
		log.Printf("[writeError] Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// bearerToken pulls the token from the Authorization header, falling back to
// the token cookie the web client sets.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

// authenticate resolves the request's token to a live account. A valid
// signature is not enough: the account must still exist and its email must
// match what the token was issued with.
func authenticate(r *http.Request) (*models.Account, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := auth.ParseToken(token, jwtSecret)
	if err != nil {
		return nil, err
	}

	acct, err := linkStore.AccountByID(r.Context(), claims.AccountID)
	if err != nil {
		return nil, models.ErrUnauthorized
	}
	if acct.Email != claims.Email {
		return nil, models.ErrUnauthorized
	}
	return acct, nil
}

type accountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Name: a.Name, Institution: a.Institution}
}

func handleRegister(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		Name        string `json:"name"`
		Institution string `json:"institution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrValidation)
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, models.ErrValidation)
		return
	}
	if len(req.Password) < 8 {
		writeError(w, models.ErrValidation)
		return
	}
	if req.Name == "" {
		writeError(w, models.ErrValidation)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	acct := &models.Account{
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Name:         req.Name,
		Institution:  req.Institution,
	}
	if err := linkStore.CreateAccount(r.Context(), acct); err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.GenerateToken(acct.ID, acct.Email, jwtSecret, auth.DefaultTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[handleRegister] New account %s", acct.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":      token,
		"expires_at": time.Now().Add(auth.DefaultTokenTTL).UTC(),
		"account":    toAccountResponse(acct),
	})
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrValidation)
		return
	}

	acct, err := linkStore.AccountByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		// A missing account and a wrong password produce the same response.
		writeError(w, models.ErrInvalidCredentials)
		return
	}
	if !auth.CheckPassword(acct.PasswordHash, req.Password) {
		writeError(w, models.ErrInvalidCredentials)
		return
	}

	token, err := auth.GenerateToken(acct.ID, acct.Email, jwtSecret, auth.DefaultTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": time.Now().Add(auth.DefaultTokenTTL).UTC(),
		"account":    toAccountResponse(acct),
	})
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	acct, err := authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

// handleLinks covers the collection: create and list, owner-scoped.
func handleLinks(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}

	acct, err := authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req struct {
			Mode     string `json:"mode"`
			Subject  string `json:"subject"`
			Prompt   string `json:"prompt"`
			Language string `json:"language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrValidation)
			return
		}

		link := &models.Link{
			OwnerID:  acct.ID,
			Mode:     models.Mode(req.Mode),
			Subject:  req.Subject,
			Prompt:   req.Prompt,
			Language: req.Language,
		}
		if err := linkStore.CreateLink(r.Context(), link); err != nil {
			writeError(w, err)
			return
		}

		log.Printf("[handleLinks] Account %s created %s link %s", acct.ID, link.Mode, link.ID)
		writeJSON(w, http.StatusCreated, link)

	case http.MethodGet:
		links, err := linkStore.LinksByOwner(r.Context(), acct.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, links)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleLink covers a single link: GET is the public read path a student's
// session page uses, DELETE is owner-only.
func handleLink(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/links/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, models.ErrNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		link, err := linkStore.LinkByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, link)

	case http.MethodDelete:
		acct, err := authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := linkStore.DeleteLink(r.Context(), acct.ID, id); err != nil {
			writeError(w, err)
			return
		}
		log.Printf("[handleLink] Account %s deleted link %s", acct.ID, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleChatStart opens a session for a lesson link: it seeds the transcript
// with the link's system prompt and dispatches the opening tutor turn. The
// session is only stored once that first dispatch succeeds, so a failed start
// leaves nothing behind and can simply be retried.
func handleChatStart(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !rateLimitAllow(clientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
		return
	}

	var req struct {
		LinkID string `json:"link_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LinkID == "" {
		writeError(w, models.ErrValidation)
		return
	}

	link, err := linkStore.LinkByID(r.Context(), req.LinkID)
	if err != nil {
		writeError(w, err)
		return
	}

	sess := &session.Session{ID: uuid.NewString(), LinkID: link.ID}
	sess.SeedSystem(link.SystemPrompt())

	result, err := llm.Dispatch(r.Context(), providerChain, sess.Snapshot())
	if err != nil {
		writeError(w, err)
		return
	}

	sess.AppendAssistant(result.Content)
	if err := sessions.Create(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	auditExchange(sess.ID, result.Model, link.SystemPrompt(), result.Content, result.InputTokens, result.OutputTokens)
	log.Printf("[handleChatStart] Session %s opened for link %s via %s", sess.ID, link.ID, result.Model)

	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": sess.ID,
		"reply":      result.Content,
		"model":      result.Model,
	})
}

// handleChatMessage appends a student turn and dispatches the reply. The user
// turn is only persisted together with the assistant turn, after a successful
// dispatch: a 503 leaves the stored transcript exactly as it was, so the
// student can resend.
func handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !rateLimitAllow(clientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	sessionID, action, found := strings.Cut(rest, "/")
	if !found || action != "message" || sessionID == "" {
		writeError(w, models.ErrNotFound)
		return
	}

	var req struct {
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, models.ErrValidation)
		return
	}

	sess, err := sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.ImageURL != "" {
		sess.AppendUserImage(req.Content, req.ImageURL)
	} else {
		sess.AppendUser(req.Content)
	}

	result, err := llm.Dispatch(r.Context(), providerChain, sess.Snapshot())
	if err != nil {
		writeError(w, err)
		return
	}

	sess.AppendAssistant(result.Content)
	if err := sessions.Update(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	auditExchange(sess.ID, result.Model, req.Content, result.Content, result.InputTokens, result.OutputTokens)

	writeJSON(w, http.StatusOK, map[string]string{
		"reply": result.Content,
		"model": result.Model,
	})
}

// handleRefine runs a one-shot prompt-improvement dispatch for a teacher
// drafting a lesson link. Nothing is stored.
func handleRefine(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := authenticate(r); err != nil {
		writeError(w, err)
		return
	}
	if !rateLimitAllow(clientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		writeError(w, models.ErrValidation)
		return
	}

	transcript := []providers.Message{
		{Role: "system", Content: refineSystemPrompt},
		{Role: "user", Content: req.Prompt},
	}
	result, err := llm.Dispatch(r.Context(), providerChain, transcript)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"prompt": result.Content,
		"model":  result.Model,
	})
}

// handleSpeech synthesizes audio for an assistant reply. Failure here is a
// 503 the UI treats as "no audio", never a broken conversation.
func handleSpeech(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, models.ErrValidation)
		return
	}
	if len(req.Text) > 4096 {
		writeError(w, models.ErrValidation)
		return
	}

	audio, err := speechClient.Synthesize(r.Context(), req.Text)
	if err != nil {
		log.Printf("[handleSpeech] Synthesis failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "speech unavailable"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audio)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if corsPreflight(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"providers": len(providerChain),
	})
}
