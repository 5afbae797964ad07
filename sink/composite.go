package sink

import (
	"context"
	"log/slog"

	"github.com/use-agent/channelscout/models"
)

// Composite appends to the CSV store first (the durable copy), then mirrors
// the whole file to the remote sheet. With a nil mirror only the CSV is
// written.
//
// Mirroring the full file on every record is O(n²) upload cost over a sweep
// of n channels; it is kept because the remote sheet must be a faithful
// replacement copy after every record, not an append log.
type Composite struct {
	store  *CSVStore
	mirror *SheetMirror
}

// NewComposite wires the CSV store and the optional sheet mirror together.
func NewComposite(store *CSVStore, mirror *SheetMirror) *Composite {
	return &Composite{store: store, mirror: mirror}
}

// Append stores the record locally, then replaces the remote worksheet with
// the full file contents.
func (c *Composite) Append(ctx context.Context, rec models.ResultRecord) error {
	if err := c.store.Append(rec); err != nil {
		return err
	}
	slog.Info("record written",
		"channel", rec.ChannelName,
		"handle", rec.Handle,
		"keyword", rec.Keyword,
		"hasEmail", rec.Email != "",
	)
	return c.mirrorAll(ctx)
}

// FlushAll performs the end-of-sweep bulk upload of the whole store.
func (c *Composite) FlushAll(ctx context.Context) error {
	return c.mirrorAll(ctx)
}

func (c *Composite) mirrorAll(ctx context.Context) error {
	if c.mirror == nil {
		return nil
	}
	grid, err := c.store.ReadAll()
	if err != nil {
		return err
	}
	return c.mirror.Replace(ctx, grid)
}
