package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	fmt.Print("Password: ")
	password, _ := reader.ReadString('\n')

	body, _ := json.Marshal(map[string]string{
		"email":    strings.TrimSpace(email),
		"password": strings.TrimSpace(password),
	})
	resp, err := http.Post(api+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	var login struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&login)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || login.Token == "" {
		fmt.Println("Login failed:", resp.Status)
		return
	}

	fmt.Print("Title: ")
	title, _ := reader.ReadString('\n')
	fmt.Print("URL to bookmark (e.g., https://example.com): ")
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		fmt.Println("Invalid URL.")
		return
	}

	body, _ = json.Marshal(map[string]string{
		"title": strings.TrimSpace(title),
		"url":   raw,
	})
	req, _ := http.NewRequest(http.MethodPost, api+"/api/bookmarks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp2.Body.Close()

	if resp2.StatusCode >= 200 && resp2.StatusCode < 300 {
		fmt.Println("Saved! Check GET /api/bookmarks and GET /link-health.")
	} else {
		fmt.Println("API returned status:", resp2.Status)
	}
}
