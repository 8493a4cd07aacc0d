// Piece catalog persisted as a flat JSON array keyed by marker ID
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// PieceType is the category label stored with each piece.
type PieceType string

// Stored labels are kept as written by earlier catalog files.
const (
	TypeMale      PieceType = "Macho"
	TypeFemale    PieceType = "Hembra"
	TypeAssembled PieceType = "Ensamblada"
)

// PieceTypes lists the accepted categories in display order.
var PieceTypes = []PieceType{TypeMale, TypeFemale, TypeAssembled}

// ErrInvalidPiece is returned when an upsert is missing its ID or model, or
// names an unknown type.
var ErrInvalidPiece = errors.New("invalid piece")

// Valid reports whether t is one of PieceTypes.
func (t PieceType) Valid() bool {
	for _, known := range PieceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Piece associates a marker ID with a part description.
type Piece struct {
	MarkerID string    `json:"aruco_id"`
	Model    string    `json:"model"`
	Type     PieceType `json:"type"`
}

// LoadStatus describes how a catalog load went.
type LoadStatus int

const (
	LoadOK LoadStatus = iota
	// LoadMissing means the backing file does not exist.
	LoadMissing
	// LoadCorrupt means the file exists but could not be read or parsed.
	LoadCorrupt
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadMissing:
		return "missing"
	case LoadCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// LoadResult is the typed outcome of Load. Missing and corrupt files both yield
// an empty catalog; Err carries the cause of a corrupt load.
type LoadResult struct {
	Status  LoadStatus
	Dropped int
	Err     error
}

// Store reads and writes the catalog file. Every mutation re-reads the raw
// entries, applies the change and writes the whole array back.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Logger
}

func NewStore(path string, logger *logrus.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored pieces in file order. Entries lacking an ID, model or
// type are dropped.
func (s *Store) Load() ([]Piece, LoadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUnsafe()
}

func (s *Store) loadUnsafe() ([]Piece, LoadResult) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.WithField("path", s.path).Debug("Catalog file not found, starting empty")
			return []Piece{}, LoadResult{Status: LoadMissing}
		}
		s.logger.WithFields(logrus.Fields{"path": s.path, "error": err}).Warn("Catalog unreadable, treating as empty")
		return []Piece{}, LoadResult{Status: LoadCorrupt, Err: err}
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.WithFields(logrus.Fields{"path": s.path, "error": err}).Warn("Catalog corrupt, treating as empty")
		return []Piece{}, LoadResult{Status: LoadCorrupt, Err: err}
	}

	pieces := make([]Piece, 0, len(raw))
	dropped := 0
	for _, entry := range raw {
		piece, ok := pieceFromEntry(entry)
		if !ok {
			dropped++
			continue
		}
		pieces = append(pieces, piece)
	}
	if dropped > 0 {
		s.logger.WithFields(logrus.Fields{"path": s.path, "dropped": dropped}).Debug("Skipped incomplete catalog entries")
	}

	return pieces, LoadResult{Status: LoadOK, Dropped: dropped}
}

// pieceFromEntry accepts numeric IDs as well as strings so hand-edited files
// keep working.
func pieceFromEntry(entry map[string]interface{}) (Piece, bool) {
	id, ok := stringField(entry, "aruco_id")
	if !ok {
		return Piece{}, false
	}
	model, ok := stringField(entry, "model")
	if !ok {
		return Piece{}, false
	}
	typ, ok := stringField(entry, "type")
	if !ok {
		return Piece{}, false
	}
	return Piece{MarkerID: NormalizeID(id), Model: model, Type: PieceType(typ)}, true
}

func stringField(entry map[string]interface{}, key string) (string, bool) {
	val, ok := entry[key]
	if !ok || val == nil {
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// NormalizeID trims id and rewrites numeric IDs in canonical decimal form, so
// "07" and "7" name the same marker.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.Atoi(id); err == nil {
		return strconv.Itoa(n)
	}
	return id
}

// Upsert updates the model and type of the piece with the given marker ID, or
// appends a new piece. It reports whether a new entry was created. Entries the
// listing skips are written back unchanged.
func (s *Store) Upsert(markerID, model string, typ PieceType) (bool, error) {
	markerID = NormalizeID(markerID)
	model = strings.TrimSpace(model)
	if markerID == "" || model == "" {
		return false, fmt.Errorf("%w: marker ID and model are required", ErrInvalidPiece)
	}
	if !typ.Valid() {
		return false, fmt.Errorf("%w: unknown type %q", ErrInvalidPiece, typ)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readRawUnsafe()

	created := true
	for _, entry := range entries {
		if entryID(entry) == markerID {
			entry["model"] = model
			entry["type"] = string(typ)
			created = false
			break
		}
	}
	if created {
		entries = append(entries, map[string]interface{}{
			"aruco_id": markerID,
			"model":    model,
			"type":     string(typ),
		})
	}

	if err := s.writeUnsafe(entries); err != nil {
		return false, err
	}

	s.logger.WithFields(logrus.Fields{
		"marker_id": markerID,
		"model":     model,
		"type":      typ,
		"created":   created,
	}).Info("Piece saved")
	return created, nil
}

// Delete removes every entry whose marker ID is listed and returns how many were
// removed. All other entries, including ones the listing skips, are kept as
// they are on disk.
func (s *Store) Delete(markerIDs ...string) (int, error) {
	if len(markerIDs) == 0 {
		return 0, nil
	}
	doomed := make(map[string]bool, len(markerIDs))
	for _, id := range markerIDs {
		doomed[NormalizeID(id)] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readRawUnsafe()
	kept := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		if id := entryID(entry); id != "" && doomed[id] {
			continue
		}
		kept = append(kept, entry)
	}
	removed := len(entries) - len(kept)

	if err := s.writeUnsafe(kept); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{"requested": len(markerIDs), "removed": removed}).Info("Pieces deleted")
	return removed, nil
}

// readRawUnsafe returns the file's entries untouched. A missing or corrupt file
// reads as empty, and the next write replaces it.
func (s *Store) readRawUnsafe() []map[string]interface{} {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithFields(logrus.Fields{"path": s.path, "error": err}).Warn("Catalog unreadable, rewriting")
		}
		return nil
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.WithFields(logrus.Fields{"path": s.path, "error": err}).Warn("Catalog corrupt, rewriting")
		return nil
	}
	return entries
}

// entryID is the normalized marker ID of a raw entry, or "" when it has none.
func entryID(entry map[string]interface{}) string {
	if entry == nil {
		return ""
	}
	id, ok := stringField(entry, "aruco_id")
	if !ok {
		return ""
	}
	return NormalizeID(id)
}

func (s *Store) writeUnsafe(entries []map[string]interface{}) error {
	if entries == nil {
		entries = []map[string]interface{}{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write catalog %s: %w", s.path, err)
	}
	return nil
}

// Index maps marker ID to piece. Later duplicates win, matching lookup by the
// last stored entry.
func Index(pieces []Piece) map[string]Piece {
	index := make(map[string]Piece, len(pieces))
	for _, p := range pieces {
		index[p.MarkerID] = p
	}
	return index
}
