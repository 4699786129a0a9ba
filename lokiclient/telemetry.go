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


package lokiclient

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer   = otel.Tracer("github.com/cardinalhq/logs-drilldown/lokiclient")
	requests metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/logs-drilldown/lokiclient")

	var err error
	requests, err = meter.Int64Counter(
		"logsdrilldown.loki.requests",
		metric.WithDescription("Number of Loki API requests by path and outcome"),
	)
	if err != nil {
		log.Fatalf("failed to create loki.requests counter: %v", err)
	}
}

func recordRequest(ctx context.Context, path, outcome string) {
	requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("outcome", outcome),
	))
}
