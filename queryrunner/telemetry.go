// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package queryrunner

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeSuccess    = "success"
	outcomeError      = "error"
	outcomeSuperseded = "superseded"
)

var (
	queries metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/logs-drilldown/queryrunner")

	var err error

	queries, err = meter.Int64Counter(
		"logsdrilldown.query.executed",
		metric.WithDescription("Number of queries run, by outcome"),
	)
	if err != nil {
		log.Fatalf("failed to create query.executed counter: %v", err)
	}
}

func recordQuery(ctx context.Context, outcome string) {
	queries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
