// Package local keeps the knowledge base on disk: a binary vector index plus
// a JSON chunk store. Readers always see a complete snapshot; a rebuild swaps
// the whole snapshot in one atomic pointer store.
package local

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

type snapshot struct {
	dimension int
	ids       []string
	vectors   [][]float32
	chunks    map[string]domain.DocumentChunk
}

// search runs brute-force inner product over the snapshot. Vectors are
// persisted L2-normalized, so the dot product is the cosine similarity.
func (s *snapshot) search(query []float32, k int) ([]domain.VectorHit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dimension)
	}
	if k <= 0 || len(s.ids) == 0 {
		return nil, nil
	}

	hits := make([]domain.VectorHit, len(s.ids))
	for i, vec := range s.vectors {
		var dot float64
		for j := 0; j < s.dimension; j++ {
			dot += float64(query[j] * vec[j])
		}
		hits[i] = domain.VectorHit{ChunkID: s.ids[i], Score: dot}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Index file layout, little-endian: dimension (4), count (4), then per entry
// idLen (4), id bytes, dimension float32 values.
func saveIndex(path string, snap *snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := writeIndex(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func writeIndex(f *os.File, snap *snapshot) error {
	if err := binary.Write(f, binary.LittleEndian, uint32(snap.dimension)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(snap.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range snap.ids {
		idBytes := []byte(id)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(snap.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

func loadIndex(path string) (dimension int, ids []string, vectors [][]float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, count uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return 0, nil, nil, fmt.Errorf("read dimension: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return 0, nil, nil, fmt.Errorf("read count: %w", err)
	}

	ids = make([]string, 0, count)
	vectors = make([][]float32, 0, count)
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < count; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return 0, nil, nil, fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return 0, nil, nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return 0, nil, nil, fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	return int(dim), ids, vectors, nil
}

func saveChunks(path string, chunks []domain.DocumentChunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chunk store dir: %w", err)
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunk store: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write chunk store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace chunk store: %w", err)
	}
	return nil
}

func loadChunks(path string) (map[string]domain.DocumentChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunk store: %w", err)
	}
	var chunks []domain.DocumentChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunk store: %w", err)
	}
	byID := make(map[string]domain.DocumentChunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	return byID, nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
