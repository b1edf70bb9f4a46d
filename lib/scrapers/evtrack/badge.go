package evtrack

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Badge fetches the generated visitor label as raw bytes plus its
// content type.
func (c *Client) Badge(ctx context.Context, uuid string) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "Badge")
	defer span.End()
	span.SetAttributes(attribute.String("uuid", uuid))

	data, contentType, err := c.Session.FetchBinary(ctx, labelPath+"?uuid="+url.QueryEscape(uuid))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch visitor label")
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("visitor label came back empty")
	}
	return data, contentType, nil
}
