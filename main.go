package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/medicnex/ragflow-relay/relay"
)

func init() {
	// Put your API key in .env (RELAY_API_KEY=...) and this will load it.
	godotenv.Overload()
}

func main() {
	pipe := relay.NewPipe(relay.ValvesFromEnv())

	body := map[string]any{
		"model": pipe.Models()[0].ID,
		"messages": []relay.Message{
			{"role": "user", "content": "Prove that the square root of 2 is irrational."},
		},
	}

	// Stream returns a channel of finalized fragments. Reasoning spans
	// arrive already rewritten as fenced blocks.
	for fragment := range pipe.Stream(context.Background(), body) {
		fmt.Print(fragment)
	}
	fmt.Println()
}
