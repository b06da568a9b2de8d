package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lu-jeremy/food-bridge/internal/agent"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Agent failed: %v", err)
	}
}

func run() error {
	searchKey := os.Getenv("SEARCH_API_KEY")
	engineID := os.Getenv("SEARCH_ENGINE_ID")
	modelURL := os.Getenv("MODEL_URL")
	modelKey := os.Getenv("MODEL_API_KEY")
	modelName := os.Getenv("MODEL_NAME")

	if searchKey == "" || engineID == "" {
		return fmt.Errorf("SEARCH_API_KEY and SEARCH_ENGINE_ID are required")
	}
	if modelURL == "" || modelName == "" {
		return fmt.Errorf("MODEL_URL and MODEL_NAME are required")
	}

	a := agent.New(
		agent.NewChatModel(modelURL, modelKey, modelName, 1000),
		agent.NewGoogleSearcher(searchKey, engineID),
		agent.NewPageFetcher(),
	)

	fmt.Println("Food Bridge - Restaurant Search Agent")
	fmt.Println("Enter restaurant names or food needs to search for donation opportunities")
	fmt.Println("Type 'quit' to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "quit", "exit", "q":
			return nil
		case "":
			continue
		}

		fmt.Println(strings.Repeat("-", 50))

		result, err := a.SearchAndAnalyze(context.Background(), query)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
		} else {
			fmt.Println(result)
		}

		fmt.Println("\n" + strings.Repeat("=", 50) + "\n")
	}

	return scanner.Err()
}
