// Package sink persists result records: an append-only local CSV store plus
// an optional Google Sheets mirror that is fully replaced on every upload.
package sink

import (
	"context"

	"github.com/use-agent/channelscout/models"
)

// RecordSink receives records as the sweep produces them.
type RecordSink interface {
	// Append durably stores one record.
	Append(ctx context.Context, rec models.ResultRecord) error

	// FlushAll uploads the entire accumulated store once more. Called at
	// sweep completion.
	FlushAll(ctx context.Context) error
}
