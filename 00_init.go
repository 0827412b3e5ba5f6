package main

import (
	"log"

	"github.com/joho/godotenv"
)

// Named so this init runs before the config init in config.go.
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}
}
