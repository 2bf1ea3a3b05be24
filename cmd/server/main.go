package main

import (
	"github.com/eleven-am/vision-relay/internal/bootstrap"
)

// @title Vision Relay API
// @version 1.0.0
// @description Streams webcam frames to a vision-language model and relays its description

// @BasePath /api

func main() {
	bootstrap.Run()
}
