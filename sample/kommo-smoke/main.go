package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/xavierca1/salesops-sync/internal/config"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
)

// kommo-smoke checks the Kommo credentials and prints what page 1 of each
// resource maps to, without touching the database.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  .env not found, using process environment")
	}

	subdomain := os.Getenv("KOMMO_SUBDOMAIN")
	token := os.Getenv("KOMMO_ACCESS_TOKEN")
	if subdomain == "" || token == "" {
		fmt.Println("❌ KOMMO_SUBDOMAIN and KOMMO_ACCESS_TOKEN must be set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := kommo.NewClient(kommo.BaseURL(subdomain), token)
	teams := config.DefaultTeamDirectory()
	now := time.Now().UTC()

	fmt.Println("🔄 Checking Kommo connectivity...")
	if err := client.Ping(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	users, err := client.GetUsers(ctx)
	exitOnErr(err)
	pipelines, err := client.GetPipelines(ctx)
	exitOnErr(err)
	leads, err := client.GetLeads(ctx, kommo.Filter{}, 1)
	exitOnErr(err)
	events, err := client.GetEvents(ctx, kommo.Filter{CreatedFrom: now.Add(-24 * time.Hour).Unix()}, 1)
	exitOnErr(err)

	fmt.Printf("👥 Users: %d\n", len(users))
	for _, u := range users {
		m := kommo.MapUser(u, teams, now)
		team := "-"
		if m.Team != nil {
			team = *m.Team
		}
		fmt.Printf("   %d %s (%s)\n", m.ID, m.Name, team)
	}
	fmt.Printf("📋 Pipelines: %d\n", len(pipelines))
	fmt.Printf("🧾 Leads on page 1: %d\n", len(leads))
	fmt.Printf("📨 Events in the last 24h (page 1): %d\n", len(events))
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}
