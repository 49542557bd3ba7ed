package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	sessionCookieName = "attendance_session"
	sessionDuration   = 12 * time.Hour
	sessionIssuer     = "face-attendance"
	cleanupInterval   = time.Hour
)

var errInvalidToken = errors.New("invalid session token")

// Session is an authenticated administrator session.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StoredSession is the persisted form of a Session.
type StoredSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository persists sessions so they survive restarts.
type SessionRepository interface {
	Save(ctx context.Context, id string, createdAt, expiresAt time.Time) error
	Get(ctx context.Context, id string) (*StoredSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager issues signed session tokens and tracks live sessions.
// A token is only accepted while its session exists, so logging out
// revokes the token before it expires.
type SessionManager struct {
	secret   []byte
	sessions map[string]*Session
	mu       sync.RWMutex
	repo     SessionRepository
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a session manager. Without a secret a random one
// is generated, which invalidates all tokens on restart. repo may be nil.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("failed to generate session secret: " + err.Error())
		}
		log.Printf("WEB_SESSION_SECRET not set, sessions will not survive a restart")
	}

	sm := &SessionManager{
		secret:   key,
		sessions: make(map[string]*Session),
		repo:     repo,
		stopCh:   make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// CreateSession starts a session and returns it with its signed token.
func (sm *SessionManager) CreateSession(ctx context.Context) (*Session, string, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Issuer:    sessionIssuer,
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	if sm.repo != nil {
		if err := sm.repo.Save(ctx, session.ID, session.CreatedAt, session.ExpiresAt); err != nil {
			return nil, "", err
		}
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session, token, nil
}

// GetSession returns a live session by ID, falling back to the repository.
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(ctx, sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		log.Printf("Failed to load session: %v", err)
		return nil
	}
	if stored == nil {
		return nil
	}

	session = &Session{ID: stored.ID, CreatedAt: stored.CreatedAt, ExpiresAt: stored.ExpiresAt}
	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession revokes a session.
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
}

// parseToken validates the signature and expiry of token and returns the
// session ID it carries.
func (sm *SessionManager) parseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return sm.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", errInvalidToken
	}
	if claims.Issuer != sessionIssuer || claims.ID == "" {
		return "", errInvalidToken
	}
	return claims.ID, nil
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from the cookie or a Bearer token
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	var candidates []string
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		candidates = append(candidates, cookie.Value)
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		candidates = append(candidates, strings.TrimPrefix(authHeader, "Bearer "))
	}

	for _, token := range candidates {
		id, err := sm.parseToken(token)
		if err != nil {
			continue
		}
		if session := sm.GetSession(r.Context(), id); session != nil {
			return session
		}
	}
	return nil
}

// Stop ends the background cleanup.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stopCh) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stopCh:
			return
		case <-ticker.C:
			sm.cleanupExpired(context.Background())
		}
	}
}

func (sm *SessionManager) cleanupExpired(ctx context.Context) {
	now := time.Now()
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	if sm.repo != nil {
		if n, err := sm.repo.DeleteExpired(ctx); err != nil {
			log.Printf("Failed to delete expired sessions: %v", err)
		} else if n > 0 {
			log.Printf("Deleted %d expired sessions", n)
		}
	}
}
