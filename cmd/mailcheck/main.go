// Command mailcheck sends a single test email through the configured
// SendGrid account.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"taskr/utils"

	"github.com/joho/godotenv"
)

func main() {
	to := flag.String("to", "", "recipient address")
	name := flag.String("name", "", "recipient name")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing..")
	}
	if *to == "" {
		log.Fatal("-to is required")
	}
	if err := utils.ValidateEmail(*to); err != nil {
		log.Fatalf("invalid recipient %q: %v", *to, err)
	}

	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		log.Fatal("SENDGRID_API_KEY is not set")
	}
	fromName := os.Getenv("MAIL_FROM_NAME")
	if fromName == "" {
		fromName = "taskr support"
	}
	fromAddress := os.Getenv("MAIL_FROM_ADDRESS")
	if fromAddress == "" {
		fromAddress = "donotreply@taskr.local"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mailer := utils.NewMailer(apiKey, fromName, fromAddress)
	if err := mailer.SendWelcome(ctx, *name, *to); err != nil {
		log.Fatalf("send failed: %v", err)
	}
	log.Println("success")
}
