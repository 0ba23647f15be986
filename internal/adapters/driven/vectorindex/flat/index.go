// Package flat provides a persistent vector index with exact cosine
// search over a flat in-memory slice, serialised to a single file.
//
// The on-disk format is self-describing: a header records the format
// version, metric, dimension and owning store ID. A file whose header
// does not match the opening store is reported as ErrIndexStale so the
// caller can rebuild the index from the document store, which remains
// the source of truth.
package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// formatVersion is bumped on incompatible layout changes.
const formatVersion = 1

// metricCosine is the only metric code currently written.
const metricCosine = 1

// fileMagic identifies an index file.
var fileMagic = [4]byte{'R', 'C', 'L', 'V'}

// entry is one stored vector. Vectors are held L2-normalised so
// search reduces to a dot product.
type entry struct {
	chunkID    string
	documentID string
	position   int
	vector     []float32
}

// Index is a flat vector index. All vectors are kept in memory;
// Save serialises them atomically via a temp file and rename.
type Index struct {
	mu        sync.RWMutex
	path      string
	dimension int
	storeID   string
	entries   []entry
	byChunk   map[string]int
	dirty     bool
}

// NewIndex opens the index file at path, or starts an empty index if
// the file does not exist. The file's recorded dimension and store ID
// must match the given values; any mismatch or corruption is returned
// as ErrIndexStale.
func NewIndex(path string, dimension int, storeID string) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat index: dimension %d: %w", dimension, domain.ErrInvalidConfig)
	}

	idx := &Index{
		path:      path,
		dimension: dimension,
		storeID:   storeID,
		byChunk:   make(map[string]int),
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	defer f.Close()

	if err := idx.load(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("load index %s: %v: %w", path, err, domain.ErrIndexStale)
	}

	return idx, nil
}

// Add inserts a vector entry. Adding an entry whose chunk ID is
// already present is a no-op.
func (idx *Index) Add(_ context.Context, e driven.VectorEntry) error {
	if len(e.Vector) != idx.dimension {
		return fmt.Errorf("add %s: vector has %d dimensions, index has %d: %w",
			e.ChunkID, len(e.Vector), idx.dimension, domain.ErrDimensionMismatch)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.byChunk[e.ChunkID]; exists {
		return nil
	}

	idx.byChunk[e.ChunkID] = len(idx.entries)
	idx.entries = append(idx.entries, entry{
		chunkID:    e.ChunkID,
		documentID: e.DocumentID,
		position:   e.Position,
		vector:     normalise(e.Vector),
	})
	idx.dirty = true

	return nil
}

// Delete removes a vector from the index. Deleting an unknown chunk
// ID is a no-op.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos, exists := idx.byChunk[chunkID]
	if !exists {
		return nil
	}

	// Swap-remove; entry order is irrelevant to search.
	last := len(idx.entries) - 1
	if pos != last {
		idx.entries[pos] = idx.entries[last]
		idx.byChunk[idx.entries[pos].chunkID] = pos
	}
	idx.entries = idx.entries[:last]
	delete(idx.byChunk, chunkID)
	idx.dirty = true

	return nil
}

// DeleteAll removes every vector from the index.
func (idx *Index) DeleteAll(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = nil
	idx.byChunk = make(map[string]int)
	idx.dirty = true

	return nil
}

// Search finds the k most similar entries to the query vector, ranked
// by descending cosine similarity. Ties are broken by smaller chunk
// position, then by document ID. An empty index returns an empty
// slice.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("search: query has %d dimensions, index has %d: %w",
			len(query), idx.dimension, domain.ErrDimensionMismatch)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(idx.entries))
	if k <= 0 || len(idx.entries) == 0 {
		return hits, nil
	}

	q := normalise(query)
	for _, e := range idx.entries {
		hits = append(hits, driven.VectorHit{
			ChunkID:    e.chunkID,
			DocumentID: e.documentID,
			Position:   e.position,
			Similarity: dot(q, e.vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].Position != hits[j].Position {
			return hits[i].Position < hits[j].Position
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Save persists the index to disk. The file is written to a temp file
// in the same directory and renamed into place, so readers see either
// the old or the new index, never a partial write.
func (idx *Index) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.dirty {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(idx.path), filepath.Base(idx.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()

	if err := idx.write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, idx.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename index: %w", err)
	}

	idx.dirty = false
	return nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Close persists any unsaved entries and releases resources.
func (idx *Index) Close() error {
	return idx.Save()
}

// write serialises the index. Callers hold the lock.
func (idx *Index) write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(fileMagic[:]); err != nil {
		return err
	}
	if err := writeUint16(bw, formatVersion); err != nil {
		return err
	}
	if err := bw.WriteByte(metricCosine); err != nil {
		return err
	}
	if err := bw.WriteByte(0); err != nil { // reserved
		return err
	}
	if err := writeUint32(bw, uint32(idx.dimension)); err != nil {
		return err
	}
	if err := writeString(bw, idx.storeID); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(len(idx.entries))); err != nil {
		return err
	}

	for _, e := range idx.entries {
		if err := writeString(bw, e.chunkID); err != nil {
			return err
		}
		if err := writeString(bw, e.documentID); err != nil {
			return err
		}
		if err := writeUint32(bw, uint32(e.position)); err != nil {
			return err
		}
		buf := make([]byte, 4)
		for _, v := range e.vector {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// load parses an index file into the in-memory state.
func (idx *Index) load(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if magic != fileMagic {
		return fmt.Errorf("bad magic %q", magic[:])
	}

	version, err := readUint16(r)
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("unsupported version %d", version)
	}

	var metricAndReserved [2]byte
	if _, err := io.ReadFull(r, metricAndReserved[:]); err != nil {
		return fmt.Errorf("read metric: %w", err)
	}
	if metricAndReserved[0] != metricCosine {
		return fmt.Errorf("unsupported metric %d", metricAndReserved[0])
	}

	dimension, err := readUint32(r)
	if err != nil {
		return fmt.Errorf("read dimension: %w", err)
	}
	if int(dimension) != idx.dimension {
		return fmt.Errorf("file has %d dimensions, store has %d", dimension, idx.dimension)
	}

	storeID, err := readString(r)
	if err != nil {
		return fmt.Errorf("read store id: %w", err)
	}
	if storeID != idx.storeID {
		return fmt.Errorf("file belongs to store %s, not %s", storeID, idx.storeID)
	}

	count, err := readUint32(r)
	if err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	vectorBytes := make([]byte, idx.dimension*4)
	for i := uint32(0); i < count; i++ {
		chunkID, err := readString(r)
		if err != nil {
			return fmt.Errorf("entry %d: read chunk id: %w", i, err)
		}
		documentID, err := readString(r)
		if err != nil {
			return fmt.Errorf("entry %d: read document id: %w", i, err)
		}
		position, err := readUint32(r)
		if err != nil {
			return fmt.Errorf("entry %d: read position: %w", i, err)
		}
		if _, err := io.ReadFull(r, vectorBytes); err != nil {
			return fmt.Errorf("entry %d: read vector: %w", i, err)
		}
		vector := make([]float32, idx.dimension)
		for j := range vector {
			vector[j] = math.Float32frombits(binary.LittleEndian.Uint32(vectorBytes[j*4:]))
		}

		idx.byChunk[chunkID] = len(idx.entries)
		idx.entries = append(idx.entries, entry{
			chunkID:    chunkID,
			documentID: documentID,
			position:   int(position),
			vector:     vector,
		})
	}

	// Anything after the declared entries means a foreign or damaged file.
	var trailing [1]byte
	if _, err := io.ReadFull(r, trailing[:]); err != io.EOF {
		return fmt.Errorf("trailing data after %d entries", count)
	}

	return nil
}

// normalise returns an L2-normalised copy of v. A zero vector is
// returned unchanged.
func normalise(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func writeUint16(w *bufio.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeString(w *bufio.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string of %d bytes exceeds format limit", len(s))
	}
	if err := writeUint16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readString(r io.Reader) (string, error) {
	length, err := readUint16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
