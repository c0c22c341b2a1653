package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kwasu-clearance/authcore/internal/bootstrap"
	"github.com/kwasu-clearance/authcore/password"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the service config file")
	hashPassword := flag.String("hash-password", "", "hash the given password for the accounts roster and exit")
	flag.Parse()

	if *hashPassword != "" {
		hasher, err := password.NewHasher(password.DefaultConfig())
		if err != nil {
			log.Fatalf("init hasher: %v", err)
		}
		hash, err := hasher.Hash(*hashPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Fprintln(os.Stdout, hash)
		return
	}

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, *configPath)
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run service: %v", err)
	}
}
