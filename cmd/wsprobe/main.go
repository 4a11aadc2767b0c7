package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type Event struct {
	Type    string `json:"type"`
	QuestID string `json:"quest_id"`
}

// Small manual probe for the live subscription endpoint: connects to a quest
// room and prints every scoreboard event until interrupted.
func main() {
	base := flag.String("url", "ws://localhost:8888/api/v1/ws/quests", "base websocket url")
	questID := flag.String("quest", "", "quest id to subscribe to")
	token := flag.String("token", "", "bearer token")
	flag.Parse()

	url := fmt.Sprintf("%s/%s?token=%s", *base, *questID, *token)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				log.Println("write error:", err)
				return
			}
		}
	}()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			log.Println("read error:", err)
			return
		}

		var event Event
		if err := json.Unmarshal(p, &event); err != nil {
			log.Printf("Received (raw):\n%s\n", p)
			continue
		}

		log.Printf("Received: type=%s quest_id=%s", event.Type, event.QuestID)
	}
}
