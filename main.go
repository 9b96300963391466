package main

import (
	"go-calendar-api/core/logger"
	"go-calendar-api/core/server"
)

// @title Calendar API
// @version 1.0
// @description Recurring-event scheduling backend with field inheritance and materialized occurrence windows
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:7070
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
