package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"

	"newsapi/internal/app"
	"newsapi/internal/config"
	"newsapi/internal/news"

	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		count       = flag.Int("count", 50, "Number of news to create")
		concurrency = flag.Int("concurrency", 4, "Parallel writers")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	stores, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	service := stores.NewService(cfg)
	log.Printf("Generating %d news...", *count)

	stats, err := seed(ctx, service, sampleInputs(*count), *concurrency)
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Printf("Created %d news (%d skipped, %d not mirrored)", stats.created, stats.skipped, stats.unsynced)

	total, err := service.Count(ctx)
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	log.Printf("Total news in local store: %d", total)
}

type seedStats struct {
	created, skipped, unsynced int64
}

// seed creates every input through the service. Titles that already exist
// are skipped so the command can be rerun.
func seed(ctx context.Context, service *news.Service, inputs []news.Input, concurrency int) (seedStats, error) {
	var created, skipped, unsynced atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, in := range inputs {
		g.Go(func() error {
			res, err := service.Create(gctx, in)
			switch {
			case errors.Is(err, news.ErrTitleTaken):
				skipped.Add(1)
				return nil
			case err != nil:
				return fmt.Errorf("create %q: %w", in.Title, err)
			}
			created.Add(1)
			if !res.RemoteSynced {
				unsynced.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	return seedStats{created: created.Load(), skipped: skipped.Load(), unsynced: unsynced.Load()}, err
}

// sampleInputs derives titles from the index only, so reruns hit the same titles.
func sampleInputs(count int) []news.Input {
	topics := []string{"Markets", "Weather", "Science", "Sports", "Politics", "Technology", "Health", "Travel", "Culture", "Space"}
	inputs := make([]news.Input, 0, count)
	for i := 0; i < count; i++ {
		topic := topics[i%len(topics)]
		inputs = append(inputs, news.Input{
			Title: fmt.Sprintf("%s update #%d", topic, i+1),
			Body:  fmt.Sprintf("Today in %s: a story about %s and %s.", topic, getRandomWord(), getRandomWord()),
		})
	}
	return inputs
}

func getRandomWord() string {
	words := []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Progress", "Change", "Peace", "Nature", "Future", "Records", "Reality",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Energy",
	}
	return words[rand.Intn(len(words))]
}
