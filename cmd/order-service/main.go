package main

import (
	"log"

	"gomart/internal/orders/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("order service failed: %v", err)
	}
}
