package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	BugEditScope       string
	UploadBaseURL      string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// BugEditScope values control who beyond the creator may update or delete a
// bug: nobody (creator), its assignee, or any member of its project.
const (
	BugEditCreator  = "creator"
	BugEditAssignee = "assignee"
	BugEditMembers  = "members"
)

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":5000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://nexflow:nexflow@db:5432/nexflow?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:     time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 1440)) * time.Minute,
		BugEditScope:       GetString("BUG_EDIT_SCOPE", BugEditCreator),
		UploadBaseURL:      GetString("UPLOAD_BASE_URL", "/uploads"),
		OutboxPollInterval: time.Duration(GetInt("OUTBOX_POLL_MS", 250)) * time.Millisecond,
		OutboxBatchSize:    GetInt("OUTBOX_BATCH_SIZE", 100),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
