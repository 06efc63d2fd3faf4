package event

import (
	"github.com/google/uuid"

	logs "github.com/danmuck/assurance/internal/logging"
)

// DefaultChunkSize is the fragment size in bytes of a serialized payload.
const DefaultChunkSize = 4096

const (
	PayloadKeyChunkData = "chunkData"
	MetadataKeyChunk    = "chunkmetadata"
	ChunkKeyID          = "chunkId"
	ChunkKeySequence    = "sequence"
	ChunkKeyTotalChunks = "totalChunks"
)

// Chunker splits events whose serialized payload exceeds Size bytes.
type Chunker struct {
	Size  int
	NewID func() string
}

func NewChunker(size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{Size: size, NewID: uuid.NewString}
}

// NeedsChunking reports whether e must be split before it is queued.
// Fragments never qualify.
func (c *Chunker) NeedsChunking(e Event) bool {
	if IsChunk(e) {
		return false
	}
	return e.PayloadSize() > c.Size
}

// Chunk splits the JSON payload of e into Size-byte fragments sharing one
// chunk id. A payload-less event yields no fragments.
func (c *Chunker) Chunk(e Event) []Event {
	data, err := e.PayloadBytes()
	if err != nil {
		logs.Warnf("event.Chunker.Chunk dropped id=%s err=%v", e.ID, err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	chunkID := c.NewID()
	total := (len(data) + c.Size - 1) / c.Size
	out := make([]Event, 0, total)
	for seq := 0; seq < total; seq++ {
		start := seq * c.Size
		end := min(start+c.Size, len(data))
		out = append(out, Event{
			ID:     uuid.NewString(),
			Vendor: e.Vendor,
			Type:   e.Type,
			Payload: map[string]any{
				PayloadKeyChunkData: string(data[start:end]),
			},
			Metadata: map[string]any{
				MetadataKeyChunk: map[string]any{
					ChunkKeyID:          chunkID,
					ChunkKeySequence:    seq,
					ChunkKeyTotalChunks: total,
				},
			},
			Timestamp: e.Timestamp,
		})
	}
	return out
}

// IsChunk reports whether e is a fragment produced by a Chunker.
func IsChunk(e Event) bool {
	_, ok := e.Metadata[MetadataKeyChunk]
	return ok
}

// ChunkInfo extracts the reassembly metadata of a fragment.
func ChunkInfo(e Event) (id string, sequence, total int, ok bool) {
	meta, isMap := e.Metadata[MetadataKeyChunk].(map[string]any)
	if !isMap {
		return "", 0, 0, false
	}
	id, _ = meta[ChunkKeyID].(string)
	sequence, seqOK := asInt(meta[ChunkKeySequence])
	total, totalOK := asInt(meta[ChunkKeyTotalChunks])
	return id, sequence, total, id != "" && seqOK && totalOK
}

// asInt accepts both in-process ints and JSON-decoded float64s.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
