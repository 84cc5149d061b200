package bootstrap

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Loadenv reads .env, or the file named by ENV_FILE, into the process
// environment. Variables already set take precedence.
func Loadenv() {
	file := os.Getenv("ENV_FILE")
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		log.Printf("No %s file found, using system environment variables", file)
	}
}
