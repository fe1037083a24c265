package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	UserCount = 100 // Concurrent chatters. Start small; the DB might choke on 1000 immediately.
	MsgCount  = 20  // Messages per user
)

type AuthResponse struct {
	Token    string `json:"access_token"`
	Username string `json:"username"`
}

func main() {
	log.Printf("🔥 STARTING STRESS TEST: %d Users, %d Messages each...", UserCount, MsgCount)
	var wg sync.WaitGroup

	for i := 0; i < UserCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runUser(id)
		}(i)
	}

	wg.Wait()
	log.Println("✅ LOAD TEST COMPLETE")
}

func runUser(id int) {
	username := fmt.Sprintf("load_user_%d", id)
	email := fmt.Sprintf("load_user_%d@example.com", id)
	pass := "password123"

	token := authenticate(username, email, pass)
	if token == "" {
		return
	}

	spamChat(token, username)
}

// authenticate signs up (ignoring "already exists") and signs in.
func authenticate(username, email, password string) string {
	postJSON("/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})

	resp, err := postJSON("/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		log.Printf("❌ Sign-in Failed [%s]: %v", username, err)
		return ""
	}
	defer resp.Body.Close()

	var data AuthResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.Token
}

func spamChat(token, username string) {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", WSURL, token), nil)
	if err != nil {
		log.Printf("❌ WS Connect Fail [%s]: %v", username, err)
		return
	}
	defer conn.Close()

	// Drain inbound broadcasts so the server never sees us as slow.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < MsgCount; i++ {
		frame := map[string]any{
			"event": "sendMessage",
			"data": map[string]string{
				"content": fmt.Sprintf("LoadTest Msg %d from %s", i, username),
			},
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("❌ Send Fail [%s]: %v", username, err)
			break
		}
		// Small sleep to prevent an instant localhost bottleneck.
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("✅ %s finished sending %d msgs", username, MsgCount)
}

func postJSON(endpoint string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	return http.Post(BaseURL+endpoint, "application/json", bytes.NewBuffer(jsonData))
}
