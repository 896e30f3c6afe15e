package main

import (
	"os"

	"connection-broker/internal/app"
)

// @title Connection Broker API
// @version 1.0
// @description Admin API for CRM connection health and AI provider fallback.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}
