package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blockcity/voxel-engine/internal/eventbus"
)

// event-cli — утилита наблюдения за шиной событий движка.
// Подписывается на NATS JetStream и печатает события в консоль:
//
//	event-cli -url nats://127.0.0.1:4222 -types ChunkLoadFailed,WorldRegenerated

const timeFormat = "15:04:05.000"

func main() {
	var (
		url     = flag.String("url", "nats://127.0.0.1:4222", "адрес NATS")
		stream  = flag.String("stream", "VOXEL_EVENTS", "имя JetStream стрима")
		types   = flag.String("types", "", "фильтр типов событий (через запятую)")
		sources = flag.String("sources", "", "фильтр источников (через запятую)")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*url, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer bus.Close()

	filter := eventbus.Filter{
		Types:   parseStringList(*types),
		Sources: parseStringList(*sources),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	_, err = bus.Subscribe(ctx, filter, func(ctx context.Context, ev *eventbus.Envelope) {
		printEvent(ev)
		count++
	})
	if err != nil {
		log.Fatalf("❌ Ошибка подписки: %v", err)
	}

	fmt.Printf("🎬 Слушаю %s (stream=%s), Ctrl+C для выхода\n", *url, *stream)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Printf("\n📊 Всего событий: %d\n", count)
}

// printEvent выводит событие в читаемом формате
func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s/%s %s\n",
		ev.Timestamp.Local().Format(timeFormat),
		ev.Source,
		ev.EventType,
		ev.ID)
	if len(ev.Payload) > 0 {
		fmt.Printf("  %s\n", string(ev.Payload))
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
