package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/openmapping/tasking/cmd/cli/commands"
)

func main() {
	// A missing .env is fine; the environment is used as is
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
