package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	KBSourceFile = "file"
	KBSourceDB   = "db"
)

type AppConfig struct {
	Env              string
	LogLevel         string
	Port             string
	DBPath           string
	KBSource         string
	KBPath           string
	MatchThreshold   float64
	MinQuestionChars int
	AnswerSeparator  string
	MaxUploadBytes   int64
	APIToken         string
}

// Load reads an optional .env file and then the environment.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[cfg] .env not loaded: %v", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a config from any key lookup, falling back to defaults for
// missing or unparsable values.
func FromLookup(lookup func(string) (string, bool)) AppConfig {
	get := func(k, def string) string {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	getRaw := func(k, def string) string {
		if v, ok := lookup(k); ok && v != "" {
			return v
		}
		return def
	}
	getFloat := func(k string, def float64) float64 {
		if f, err := strconv.ParseFloat(get(k, ""), 64); err == nil {
			return f
		}
		return def
	}
	getInt := func(k string, def int64) int64 {
		if n, err := strconv.ParseInt(get(k, ""), 10, 64); err == nil {
			return n
		}
		return def
	}
	return AppConfig{
		Env:              get("APP_ENV", "development"),
		LogLevel:         get("LOG_LEVEL", "info"),
		Port:             get("PORT", "8080"),
		DBPath:           get("DB_PATH", "formassist.db"),
		KBSource:         strings.ToLower(get("KB_SOURCE", KBSourceFile)),
		KBPath:           get("KB_PATH", "knowledge_base.yaml"),
		MatchThreshold:   getFloat("MATCH_THRESHOLD", 1.0),
		MinQuestionChars: int(getInt("MIN_QUESTION_CHARS", 2)),
		AnswerSeparator:  getRaw("ANSWER_SEPARATOR", " "),
		MaxUploadBytes:   getInt("MAX_UPLOAD_BYTES", 20<<20),
		APIToken:         get("API_TOKEN", ""),
	}
}

func (c AppConfig) Production() bool { return c.Env == "production" }

func (c AppConfig) Validate() error {
	switch c.KBSource {
	case KBSourceFile, KBSourceDB:
	default:
		return fmt.Errorf("KB_SOURCE must be %q or %q, got %q", KBSourceFile, KBSourceDB, c.KBSource)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0,1], got %v", c.MatchThreshold)
	}
	if c.MinQuestionChars <= 0 {
		return fmt.Errorf("MIN_QUESTION_CHARS must be positive, got %d", c.MinQuestionChars)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.KBSource == KBSourceFile && c.KBPath == "" {
		return fmt.Errorf("KB_PATH required when KB_SOURCE=file")
	}
	return nil
}

// String hides the API token.
func (c AppConfig) String() string {
	token := ""
	if c.APIToken != "" {
		token = "***"
	}
	return fmt.Sprintf("env=%s log=%s port=%s db=%s kb=%s:%s threshold=%v min_chars=%d max_upload=%d token=%s",
		c.Env, c.LogLevel, c.Port, c.DBPath, c.KBSource, c.KBPath, c.MatchThreshold, c.MinQuestionChars, c.MaxUploadBytes, token)
}
