package ingest

import "errors"

// ErrUnknownSource is returned when a write names a source with no buffer.
var ErrUnknownSource = errors.New("unknown ingestion source")
