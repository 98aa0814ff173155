package search

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// VectorIndex mirrors the SQL-resident vector_ann table into an in-process
// HNSW graph for approximate kNN search, keyed by embedding_id. The SQL
// table remains the source of truth; this index is a cache rebuilt at
// startup and kept in sync incrementally on writes.
type VectorIndex struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[uint64]
	dimension int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewVectorIndex builds an empty cosine-distance HNSW index for vectors of
// the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &VectorIndex{
		graph:     graph,
		dimension: dimension,
		idMap:     make(map[string]uint64),
		keyMap:    make(map[uint64]string),
	}
}

// RebuildVectorIndex reads every row of vector_ann and constructs a fresh
// VectorIndex from it, for use at process startup or after a detected
// desync.
func RebuildVectorIndex(db *sql.DB, dimension int) (*VectorIndex, error) {
	idx := NewVectorIndex(dimension)

	rows, err := db.Query(`SELECT embedding_id, vector, dimension FROM vector_ann`)
	if err != nil {
		return nil, fmt.Errorf("query vector_ann: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var embeddingID string
		var blob []byte
		var dim int
		if err := rows.Scan(&embeddingID, &blob, &dim); err != nil {
			return nil, fmt.Errorf("scan vector_ann row: %w", err)
		}
		idx.Upsert(embeddingID, decodeFloat32Vector(blob, dim))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector_ann: %w", err)
	}

	return idx, nil
}

// Upsert adds or replaces the vector for id. An existing entry is removed
// via lazy deletion (mapping orphaned, node left in the graph) rather than
// a graph delete, since coder/hnsw's delete path is unsafe when it empties
// the last node.
func (v *VectorIndex) Upsert(id string, vector []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if existingKey, ok := v.idMap[id]; ok {
		delete(v.keyMap, existingKey)
		delete(v.idMap, id)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeVectorInPlace(vec)

	key := v.nextKey
	v.nextKey++

	v.graph.Add(hnsw.MakeNode(key, vec))
	v.idMap[id] = key
	v.keyMap[key] = id
}

// Delete removes id via lazy deletion.
func (v *VectorIndex) Delete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.idMap[id]; ok {
		delete(v.keyMap, key)
		delete(v.idMap, id)
	}
}

// Len reports the number of live (non-orphaned) entries.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idMap)
}

// Search returns the top-k nearest neighbors to query by cosine distance,
// as embedding_id-keyed RankedHits ordered best-first.
func (v *VectorIndex) Search(query []float32, k int) []RankedHit {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.idMap) == 0 {
		return []RankedHit{}
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	nodes := v.graph.Search(normalized, k)
	hits := make([]RankedHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := v.keyMap[node.Key]
		if !ok {
			continue // lazily-deleted orphan
		}
		distance := v.graph.Distance(normalized, node.Value)
		hits = append(hits, RankedHit{ID: id, Score: float64(distanceToScore(distance))})
	}
	return hits
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// distanceToScore converts cosine distance (range 0-2) to a 0-1 similarity
// score.
func distanceToScore(distance float32) float32 {
	return 1.0 - distance/2.0
}

func decodeFloat32Vector(buf []byte, dimension int) []float32 {
	out := make([]float32, dimension)
	for i := range out {
		if (i+1)*4 > len(buf) {
			break
		}
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
