package env

import (
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func GetEnvInt(key string, def int) int {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("[Env] %s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return v
}

func GetEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warnf("[Env] %s=%q is not a boolean, using %t", key, raw, def)
		return def
	}
	return v
}

func SetupEnvFile() {
	// Look for .env file in project root
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/formfox to project root
		"../../../.env", // Fallback for deeper nesting
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	// Containers inject configuration through the process environment.
	Env = map[string]string{}
	log.Warn("[Env] No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
