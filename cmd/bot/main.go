package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"yamBot/internal/app/runtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Iniciando bot...")

	run, err := runtime.Start(ctx, runtime.Options{})
	if err != nil {
		log.Fatal(err)
	}

	<-ctx.Done()

	if err := run.Stop(); err != nil {
		log.Printf("apagando: %v", err)
	}
	log.Println("Bot apagado.")
}
