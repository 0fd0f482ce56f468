// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	apiAddr := strings.TrimSpace(os.Getenv("API_ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	checkCron := strings.TrimSpace(os.Getenv("CHECK_CRON"))
	webhook := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK"))

	if secret == "" {
		fail("JWT_SECRET is empty (tokens would be signed with an empty key).")
	}
	if len(secret) < 32 {
		warn("JWT_SECRET is short; use at least 32 random bytes.")
	}

	if apiAddr == "" {
		warn("API_ADDR is empty; the default :8080 will be used.")
	} else {
		ok("API_ADDR=" + apiAddr)
	}

	if db == "" {
		warn("DATABASE_URL empty — API will use the in-memory store; data is lost on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if checkCron == "" {
		ok("CHECK_CRON empty — default daily 02:00 schedule will be used")
	} else {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(checkCron); err != nil {
			fail("CHECK_CRON does not parse (six fields, seconds first): " + err.Error())
		}
		ok("CHECK_CRON=" + checkCron)
	}

	if webhook == "" {
		warn("SLACK_WEBHOOK empty — dead-link alerts are disabled.")
	} else {
		ok("SLACK_WEBHOOK present")
	}

	ok("preflight passed")
}
