package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/planmetric/planmetric/internal/adapters/anthropic"
	"github.com/planmetric/planmetric/internal/adapters/render"
	"github.com/planmetric/planmetric/internal/core/domain"
	"github.com/planmetric/planmetric/internal/core/usecases"
)

// analyze runs the measurement pipeline on one extracted page offline,
// without the API server. Input is the same page JSON the API accepts.
//
//	analyze [-overlay out.png] page.json
//
// Setting PLANMETRIC_VERIFIER_API_KEY enables verifier escalation for
// low-confidence pages.
func main() {
	overlayPath := flag.String("overlay", "", "write a PNG overlay of detected walls to this path")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [-overlay out.png] page.json")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read page: %v", err)
	}

	var page domain.Page
	if err := json.Unmarshal(data, &page); err != nil {
		log.Fatalf("parse page: %v", err)
	}

	var scaleVerifier *usecases.ScaleVerifier
	if key := os.Getenv("PLANMETRIC_VERIFIER_API_KEY"); key != "" {
		model := os.Getenv("PLANMETRIC_VERIFIER_MODEL")
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		client := anthropic.New("https://api.anthropic.com", key, model, 30*time.Second)
		scaleVerifier = usecases.NewScaleVerifier(client, nil)
	}

	svc := usecases.NewAnalysisService(scaleVerifier)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m, err := svc.Analyze(ctx, &page)
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	if *overlayPath != "" {
		img, err := render.NewOverlay().Render(m, page.WidthPts, page.HeightPts)
		if err != nil {
			log.Fatalf("render overlay: %v", err)
		}
		if err := os.WriteFile(*overlayPath, img, 0o644); err != nil {
			log.Fatalf("write overlay: %v", err)
		}
	}

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}
