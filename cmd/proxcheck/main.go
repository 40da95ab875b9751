package main

import (
	"proxcheck/internal/app"

	"github.com/charmbracelet/log"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal("proxy check terminated", "error", err)
	}
}
