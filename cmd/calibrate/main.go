// Command calibrate embeds a reference answer and a student answer with the
// configured provider and prints per-point similarity, to help pick
// EVALUATION_POINT_FLOOR and RETRIEVAL_SIMILARITY_FLOOR for a given model.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"study-assistant-be/internal/bootstrap"
	"study-assistant-be/internal/config"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/rag/evaluation"

	"github.com/fatih/color"
)

func main() {
	reference := flag.String("reference", "Osmosis is the movement of water across a semi-permeable membrane. Water moves from a dilute solution to a concentrated solution. It is a passive process.", "reference answer")
	answer := flag.String("answer", "Water goes through the membrane towards the more concentrated side without using energy.", "student answer")
	flag.Parse()

	cfg := config.Load()
	providers, err := bootstrap.NewProviders(cfg, nil, logger.NewNopLogger())
	if err != nil {
		log.Fatalf("Failed to init providers: %v", err)
	}
	ctx := context.Background()

	points := evaluation.Segment(*reference)
	sentences := evaluation.Segment(*answer)
	color.Cyan("Provider: %s/%s | %d reference points | %d answer segments", cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingModel, len(points), len(sentences))

	answerVecs := make([][]float32, len(sentences))
	for i, s := range sentences {
		if answerVecs[i], err = embedding.Vector(ctx, providers.Embedder, s, embedding.TaskSemanticSimilarity); err != nil {
			log.Fatalf("Failed to embed answer: %v", err)
		}
	}

	floor := cfg.Pipeline.PointCoverageFloor
	for _, p := range points {
		pv, err := embedding.Vector(ctx, providers.Embedder, p, embedding.TaskSemanticSimilarity)
		if err != nil {
			log.Fatalf("Failed to embed point: %v", err)
		}
		best := 0.0
		for _, av := range answerVecs {
			if s := embedding.Cosine(pv, av); s > best {
				best = s
			}
		}
		line := fmt.Sprintf("%.3f  %s", best, p)
		if best >= floor {
			color.Green("covered  %s", line)
		} else {
			color.Red("missing  %s", line)
		}
	}

	whole, err := embedding.Vector(ctx, providers.Embedder, *reference, embedding.TaskSemanticSimilarity)
	if err != nil {
		log.Fatalf("Failed to embed reference: %v", err)
	}
	full, err := embedding.Vector(ctx, providers.Embedder, *answer, embedding.TaskSemanticSimilarity)
	if err != nil {
		log.Fatalf("Failed to embed answer: %v", err)
	}
	overall := embedding.Cosine(whole, full)
	color.Yellow("\nOverall similarity %.3f -> %d%% of marks (point floor %.2f)", overall, evaluation.AwardedPercent(overall), floor)
}
