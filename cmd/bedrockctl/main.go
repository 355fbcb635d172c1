package main

import (
	"os"

	"github.com/joho/godotenv"

	"bedrockctl/internal/cli"
)

func main() {
	// .env is optional; flags and real environment win over it.
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
