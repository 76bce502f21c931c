package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tyler180/epl-player-stats/internal/app/pipeline"
)

func main() {
	lambda.Start(pipeline.LambdaEntrypoint)
}
