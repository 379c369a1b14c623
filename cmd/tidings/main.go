package main

import (
	"tidings/cmd/handlers"
	"tidings/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
