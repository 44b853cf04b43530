package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"

	"unisp/internal/adapters/email"
	"unisp/internal/adapters/http/middleware"
	auditStore "unisp/internal/adapters/storage/audit"
	foodStore "unisp/internal/adapters/storage/food"
	memberStore "unisp/internal/adapters/storage/member"
	passageStore "unisp/internal/adapters/storage/passage"
)

// Stores holds all storage dependencies.
type Stores struct {
	MemberStore  memberStore.Store
	PassageStore passageStore.Store
	AuditStore   auditStore.Store
	FoodStore    foodStore.Store
}

// loadCSRFKey reads the CSRF secret from UNISP_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("UNISP_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("UNISP_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("UNISP_ENV") == "production" {
		log.Fatal("UNISP_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set UNISP_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// Email configuration
var emailFromAddress string
var emailReplyTo string

// SetEmailSender sets the global email sender for the application.
func SetEmailSender(sender email.Sender, from, replyTo string) {
	emailSender = sender
	emailFromAddress = from
	emailReplyTo = replyTo
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores) http.Handler {
	stores = s
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = os.Getenv("UNISP_ENV") == "production"

	mux := http.NewServeMux()
	registerRoutes(mux)

	csrfKey := loadCSRFKey()
	limiter := middleware.NewRateLimiter(RateLimitPerSecond)

	// Apply middleware: SecurityHeaders -> CSRF -> Auth -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
	)
}
