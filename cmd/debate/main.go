package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"claimscope/client"
)

func main() {
	server := flag.String("server", "http://127.0.0.1:8000", "backend base URL")
	topic := flag.String("topic", "", "claim to debate (required)")
	rounds := flag.Int("rounds", 4, "number of debate rounds")
	transport := flag.String("transport", "sse", "stream transport: 'sse' or 'ws'")
	audio := flag.Bool("audio", false, "request audio playback")
	proVoice := flag.String("pro-voice", "Rachel", "voice for the proponent")
	conVoice := flag.String("con-voice", "Adam", "voice for the opponent")
	mode := flag.String("mode", "both", "debate mode: 'text_only' or 'both'")
	connectTimeout := flag.Duration("connect-timeout", 15*time.Second, "bounded wait before falling back to a single-shot run")
	idleTimeout := flag.Duration("idle-timeout", 90*time.Second, "fail the session if the stream goes quiet for this long")
	flag.Parse()

	if strings.TrimSpace(*topic) == "" {
		fmt.Println("Error: -topic is required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	sse := client.NewSSETransport(*server)

	var tr client.Transport = sse
	if *transport == "ws" {
		wsURL := strings.Replace(*server, "http", "ws", 1) + "/debate/ws"
		tr = client.NewWSTransport(wsURL)
	} else if *transport != "sse" {
		log.Fatalf("unknown transport %q (want 'sse' or 'ws')", *transport)
	}

	done := make(chan client.Session, 1)
	printed := 0

	ctrl := client.NewController(client.ControllerConfig{
		Transport:      tr,
		Fallback:       sse,
		ConnectTimeout: *connectTimeout,
		IdleTimeout:    *idleTimeout,
		OnChange: func(s client.Session) {
			// The complete event may replace the turn list wholesale;
			// reprint the canonical transcript when that happens.
			if len(s.Turns) < printed {
				fmt.Println("\n--- final transcript ---")
				printed = 0
			}
			for _, turn := range s.Turns[printed:] {
				printTurn(turn)
			}
			printed = len(s.Turns)

			switch s.Status {
			case client.StatusCompleted, client.StatusFailed:
				select {
				case done <- s:
				default:
				}
			}
		},
	})
	defer ctrl.Close()

	err := ctrl.Start(context.Background(), *topic, client.Options{
		MaxRounds:    *rounds,
		IncludeAudio: *audio,
		ProVoice:     *proVoice,
		ConVoice:     *conVoice,
		Mode:         *mode,
	})
	if err != nil {
		log.Fatalf("failed to start debate: %v", err)
	}

	fmt.Printf("Debating: %q\n\n", *topic)
	final := <-done

	switch final.Status {
	case client.StatusCompleted:
		fmt.Printf("\nDebate completed: %d exchanges.\n", len(final.Turns))
	case client.StatusFailed:
		log.Fatalf("debate failed: %s", final.LastError)
	}
}

func printTurn(turn client.Turn) {
	side := "CON"
	if turn.Speaker == client.SpeakerPro {
		side = "PRO"
	}
	fmt.Printf("[round %d] %s: %s\n\n", turn.Round, side, turn.Text)
}
