package adapters

import (
	"context"
	"log/slog"

	"github.com/brandloom/brandloom/internal/engine"
	"github.com/brandloom/brandloom/internal/vector"
)

// Change is a content lifecycle notification. Old and New describe the
// record before and after the change; a nil Old is a create, a nil New is a
// delete, both set is an update.
type Change struct {
	UserID    string
	ContentID string
	DocID     string
	Old       Source
	New       Source
}

// Adapter routes content changes into the engine.
type Adapter struct {
	engine *engine.Engine
	logger *slog.Logger
}

// New creates an adapter over the engine.
func New(eng *engine.Engine, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{engine: eng, logger: logger}
}

// Apply ingests one change notification.
//
// Creates embed and store the record. Updates re-embed only when the
// canonical text drifted past the change detector's bar; an update whose
// text is effectively unchanged still merges the new metadata onto the
// stored vector. Deletes are a logged no-op: the stored vector is orphaned
// rather than cascaded (it ages out through cleanup).
//
// The returned error is non-nil only for a rate-limit rejection on create.
func (a *Adapter) Apply(ctx context.Context, ch Change) error {
	switch {
	case ch.New == nil && ch.Old == nil:
		a.logger.Warn("content change with no record, ignoring",
			"user_id", ch.UserID, "content_id", ch.ContentID)
		return nil

	case ch.New == nil:
		// No deletion cascade: the vector is orphaned and left to the
		// cleanup policy.
		a.logger.Info("source record deleted, vector left to age out",
			"user_id", ch.UserID,
			"content_id", ch.ContentID,
			"content_type", ch.Old.ContentType())
		return nil

	case ch.Old == nil:
		return a.engine.StoreContentVector(ctx, vector.PutRequest{
			UserID:           ch.UserID,
			ContentType:      ch.New.ContentType(),
			ContentID:        ch.ContentID,
			TextContent:      ch.New.Text(),
			Metadata:         ch.New.Metadata(),
			SourceCollection: ch.New.Collection(),
			SourceDocID:      ch.DocID,
		})

	default:
		oldText := ch.Old.Text()
		newText := ch.New.Text()
		patch := metadataPatch(ch.New.Metadata())

		if a.engine.ShouldReVectorize(oldText, newText) {
			a.engine.UpdateContentVector(ctx, ch.UserID, ch.ContentID, newText, patch)
			return nil
		}

		a.logger.Debug("content text unchanged, keeping embedding",
			"user_id", ch.UserID, "content_id", ch.ContentID)
		a.engine.UpdateContentMetadata(ctx, ch.UserID, ch.ContentID, patch)
		return nil
	}
}

// metadataPatch lifts a full metadata value into a patch. Zero-valued
// fields are left out so an update does not wipe values the record shape
// never carried.
func metadataPatch(m vector.Metadata) vector.MetadataPatch {
	var p vector.MetadataPatch
	if m.Industry != "" {
		p.Industry = &m.Industry
	}
	if m.Style != "" {
		p.Style = &m.Style
	}
	if m.Platform != "" {
		p.Platform = &m.Platform
	}
	if m.Tags != nil {
		p.Tags = m.Tags
	}
	return p
}
