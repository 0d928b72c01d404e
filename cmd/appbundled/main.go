package main

import (
	"context"
	"log"

	"github.com/NVIDIA/appbundle/pkg/api"
	"github.com/NVIDIA/appbundle/pkg/config"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if err := api.Serve(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}
