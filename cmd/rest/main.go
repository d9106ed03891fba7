package main

import (
	"context"
	"log"

	"ai-docchat-be/internal/bootstrap"
	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/server"
	"ai-docchat-be/internal/tracer"
	"ai-docchat-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	// Ingestion worker. The channel consumer always runs; the NATS consumer
	// only exists when EVENT_TRANSPORT=nats.
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()
	if container.NatsConsumer != nil {
		go func() {
			log.Println("Background: Starting NATS Consumer...")
			if err := container.NatsConsumer.Consume(context.Background()); err != nil {
				log.Printf("Background NATS Consumer Error: %v", err)
			}
		}()
	}

	srv := server.New(cfg, container)

	log.Fatal(srv.Run())
}
