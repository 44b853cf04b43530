package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"

	_ "modernc.org/sqlite"

	emailPkg "unisp/internal/adapters/email"
	web "unisp/internal/adapters/http"
	"unisp/internal/adapters/storage"
	auditStore "unisp/internal/adapters/storage/audit"
	foodStore "unisp/internal/adapters/storage/food"
	memberStore "unisp/internal/adapters/storage/member"
	passageStore "unisp/internal/adapters/storage/passage"
	"unisp/internal/application/orchestrators"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize database with WAL mode, foreign keys, and busy timeout
	dbPath := envOrDefault("UNISP_DB", "unisp.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize schema: %v", err)
	}
	log.Println("Database initialized successfully!")

	timedDB := storage.NewTimedDB(db)

	mStore := memberStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		MemberStore:  mStore,
		PassageStore: passageStore.NewSQLiteStore(timedDB),
		AuditStore:   auditStore.NewSQLiteStore(timedDB),
		FoodStore:    foodStore.NewSQLiteStore(timedDB),
	}

	// Seed the bootstrap admin if configured
	adminEmail := os.Getenv("UNISP_ADMIN_EMAIL")
	adminPassword := os.Getenv("UNISP_ADMIN_PASSWORD")
	if adminEmail != "" && adminPassword != "" {
		err := orchestrators.ExecuteSeedAdmin(context.Background(), orchestrators.SeedAdminInput{
			Email:    adminEmail,
			Password: adminPassword,
		}, orchestrators.SeedAdminDeps{MemberStore: mStore})
		if err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
	}

	// Configure email sender
	resendKey := os.Getenv("UNISP_RESEND_KEY")
	emailFrom := envOrDefault("UNISP_RESEND_FROM", "UNISP <noreply@unisp.it>")
	emailReply := envOrDefault("UNISP_REPLY_TO", "staff@unisp.it")
	if resendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(resendKey, emailFrom), emailFrom, emailReply)
		log.Println("Email sender configured (Resend)")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender(), emailFrom, emailReply)
		if os.Getenv("UNISP_ENV") == "production" {
			log.Println("WARNING: UNISP_RESEND_KEY is not set, email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop, set UNISP_RESEND_KEY for real delivery)")
		}
	}

	mux := web.NewMux(stores)

	addr := envOrDefault("UNISP_ADDR", ":8080")
	log.Printf("UNISP %s starting on %s (env=%s)", version, addr, envOrDefault("UNISP_ENV", "development"))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
