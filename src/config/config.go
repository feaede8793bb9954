package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	BackendMongo   = "mongo"
	BackendElastic = "elastic"
	BackendStatic  = "static"
)

type Mongo struct {
	URI                   string
	Database              string
	RestaurantsCollection string
	UsersCollection       string
}

type Elastic struct {
	URL     string
	Index   string
	Mapping string
}

type Config struct {
	HTTPAddr     string
	StoreBackend string
	UserBackend  string
	Mongo        Mongo
	Elastic      Elastic
	SigningKey   []byte
	TokenTTL     time.Duration
	// AuthUsers maps username to bcrypt hash.
	AuthUsers   map[string]string
	SeedFile    string
	CORSOrigins []string
	LogLevel    log.Level
	LogFormat   string
}

// LoadEnv reads a .env file into the environment if one is present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, assuming environment variables are set directly.")
	}
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8888"),
		StoreBackend: getEnv("STORE_BACKEND", BackendMongo),
		Mongo: Mongo{
			URI:                   getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:              getEnv("MONGO_DATABASE", "restaurants_db"),
			RestaurantsCollection: getEnv("MONGO_RESTAURANTS_COLLECTION", "restaurants"),
			UsersCollection:       getEnv("MONGO_USERS_COLLECTION", "users"),
		},
		Elastic: Elastic{
			URL:     getEnv("ELASTIC_URL", "http://localhost:9200"),
			Index:   getEnv("ELASTIC_INDEX", "restaurants"),
			Mapping: getEnv("ELASTIC_MAPPING", "./src/templates/schema.json"),
		},
		SigningKey: []byte(os.Getenv("MY_SIGNING_KEY")),
		SeedFile:   os.Getenv("SEED_FILE"),
		LogFormat:  getEnv("LOG_FORMAT", "text"),
	}

	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("MY_SIGNING_KEY environment variable is not set")
	}

	switch cfg.StoreBackend {
	case BackendMongo, BackendElastic:
	default:
		return nil, errors.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMongo, BackendElastic, cfg.StoreBackend)
	}

	defaultUsers := BackendMongo
	if cfg.StoreBackend == BackendElastic {
		defaultUsers = BackendStatic
	}
	cfg.UserBackend = getEnv("USER_BACKEND", defaultUsers)
	switch cfg.UserBackend {
	case BackendMongo, BackendStatic:
	default:
		return nil, errors.Errorf("USER_BACKEND must be %q or %q, got %q", BackendMongo, BackendStatic, cfg.UserBackend)
	}
	if cfg.UserBackend == BackendMongo && cfg.StoreBackend != BackendMongo {
		return nil, errors.New("USER_BACKEND=mongo requires STORE_BACKEND=mongo")
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "30m"))
	if err != nil {
		return nil, errors.Wrap(err, "parse TOKEN_TTL")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("TOKEN_TTL must be positive, got %s", ttl)
	}
	cfg.TokenTTL = ttl

	cfg.AuthUsers, err = ParseUsers(os.Getenv("AUTH_USERS"))
	if err != nil {
		return nil, errors.Wrap(err, "parse AUTH_USERS")
	}

	cfg.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))

	cfg.LogLevel, err = log.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, errors.Wrap(err, "parse LOG_LEVEL")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// ParseUsers reads "name:hash,name2:hash2". bcrypt hashes never contain
// ':' or ',', so both are safe separators.
func ParseUsers(s string) (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range splitList(s) {
		name, hash, ok := strings.Cut(entry, ":")
		name, hash = strings.TrimSpace(name), strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" {
			return nil, errors.Errorf("malformed user entry %q, want name:hash", entry)
		}
		if _, dup := users[name]; dup {
			return nil, errors.Errorf("user %q listed twice", name)
		}
		users[name] = hash
	}
	return users, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
