// Command directupload-lambda serves the upload session API from AWS Lambda behind
// an API Gateway proxy integration. It reads the same DIRECTUPLOAD_* environment
// as directupload-server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/api"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/config"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/app"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("DIRECTUPLOAD_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize upload API", "error", err)
		os.Exit(1)
	}

	lambda.Start(api.LambdaHandler(a.Server.Handler()))
}
