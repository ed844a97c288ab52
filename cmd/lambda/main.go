// Package main is the entry point for the quizlate translation Lambda function.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/pricofy/quizlate/internal/app"
	appconfig "github.com/pricofy/quizlate/internal/config"
	"github.com/pricofy/quizlate/internal/handler"
	"github.com/pricofy/quizlate/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := appconfig.Load(os.Getenv("QUIZLATE_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Lambda ships stdout to CloudWatch; no log file.
	logging.Setup(logging.Options{Level: cfg.Log.Level, Service: "quizlate-lambda"})

	services, err := app.Build(ctx, cfg, nil)
	if err != nil {
		slog.Error("Failed to build services", "error", err)
		os.Exit(1)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS config", "error", err)
		os.Exit(1)
	}

	f := &function{
		handler: handler.New(services.Provider, services.Segmenter, handler.Options{
			Gateway:        cfg.GatewayConfig(),
			GatewayOptions: services.GatewayOptions,
			Terms:          cfg.Protect.Terms,
			Patterns:       cfg.Protect.Patterns,
			ForeignRuns:    cfg.Protect.ForeignRuns,
			Workers:        cfg.Pipeline.Workers,
			MaxBatchChars:  cfg.Provider.MaxChars,
			Supports:       services.Supports,
		}),
		warmer: &Warmer{
			client:       lambdasdk.NewFromConfig(awsCfg),
			functionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
			delay:        WarmupDelay,
		},
	}

	lambda.Start(f.handleRequest)
}

type function struct {
	handler *handler.Handler
	warmer  *Warmer
}

func (f *function) handleRequest(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// Warmup detection (MUST be first - before any other processing)
	if warmup, ok := IsWarmupEvent(event); ok {
		return f.warmer.Handle(ctx, warmup)
	}

	var req handler.Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}

	return f.handler.Handle(ctx, req)
}
