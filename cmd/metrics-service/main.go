package main

import (
	"log"

	"gomart/internal/metrics/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("metrics service failed: %v", err)
	}
}
