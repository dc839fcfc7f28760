package repo

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/board"
	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
)

const (
	kindHeader = "header"
	kindFooter = "footer"

	// maxDocumentSize bounds a single BSON document read back from disk.
	maxDocumentSize = 16 << 20
)

type fileHeader struct {
	Kind          string `bson:"kind"`
	corpus.Header `bson:",inline"`
}

type fileExample struct {
	Board       []byte    `bson:"board"`
	PolicyIndex []int32   `bson:"policy_index"`
	PolicyMass  []float64 `bson:"policy_mass"`
	Outcome     int32     `bson:"outcome"`
}

type fileFooter struct {
	Kind     string `bson:"kind"`
	Count    int64  `bson:"count"`
	Complete bool   `bson:"complete"`
}

// FileCorpusStore keeps one corpus at a fixed path as a zstd stream of BSON
// documents: a header, one document per example, and a footer with the count.
type FileCorpusStore struct {
	path string
	log  *zap.SugaredLogger
}

func NewFileCorpusStore(path string, log *zap.SugaredLogger) *FileCorpusStore {
	return &FileCorpusStore{path: path, log: log}
}

func (f *FileCorpusStore) Path() string {
	return f.path
}

func (f *FileCorpusStore) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Save writes the corpus to a temporary file next to the destination and
// renames it into place, so a failed write leaves nothing at the path.
func (f *FileCorpusStore) Save(ctx context.Context, c corpus.Corpus) (err error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp corpus: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteCorpus(ctx, tmp, c); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync corpus: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close corpus: %w", err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("move corpus into place: %w", err)
	}
	f.log.Infof("corpus with %d examples written to %s", len(c.Examples), f.path)
	return nil
}

func (f *FileCorpusStore) Load(_ context.Context) (corpus.Corpus, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return corpus.Corpus{}, err
	}
	defer file.Close()
	return ReadCorpus(file)
}

func WriteCorpus(ctx context.Context, w io.Writer, c corpus.Corpus) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	header := c.Header
	header.SchemaVersion = corpus.SchemaVersion
	if err := writeDocument(enc, fileHeader{Kind: kindHeader, Header: header}); err != nil {
		enc.Close()
		return err
	}
	for i, ex := range c.Examples {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				enc.Close()
				return err
			}
		}
		if err := writeDocument(enc, encodeExample(ex)); err != nil {
			enc.Close()
			return fmt.Errorf("example %d: %w", i, err)
		}
	}
	if err := writeDocument(enc, fileFooter{Kind: kindFooter, Count: int64(len(c.Examples)), Complete: true}); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadCorpus decodes a stream written by WriteCorpus. Streams without a
// complete footer or whose count disagrees with the examples read are
// rejected with ErrIncompleteCorpus.
func ReadCorpus(r io.Reader) (corpus.Corpus, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return corpus.Corpus{}, err
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	raw, err := readDocument(br)
	if err != nil {
		return corpus.Corpus{}, fmt.Errorf("read header: %v: %w", err, errs.ErrIncompleteCorpus)
	}
	var header fileHeader
	if err := bson.Unmarshal(raw, &header); err != nil || header.Kind != kindHeader {
		return corpus.Corpus{}, fmt.Errorf("bad corpus header: %w", errs.ErrIncompleteCorpus)
	}
	if header.SchemaVersion != corpus.SchemaVersion {
		return corpus.Corpus{}, fmt.Errorf("schema version %d: %w", header.SchemaVersion, errs.ErrUnsupportedSchema)
	}

	c := corpus.Corpus{Header: header.Header}
	n := header.BoardSize
	for {
		raw, err := readDocument(br)
		if err != nil {
			return corpus.Corpus{}, fmt.Errorf("after %d examples: %v: %w", len(c.Examples), err, errs.ErrIncompleteCorpus)
		}
		if kind, ok := raw.Lookup("kind").StringValueOK(); ok && kind == kindFooter {
			var footer fileFooter
			if err := bson.Unmarshal(raw, &footer); err != nil {
				return corpus.Corpus{}, err
			}
			if !footer.Complete || footer.Count != int64(len(c.Examples)) {
				return corpus.Corpus{}, fmt.Errorf("footer counts %d examples, read %d: %w",
					footer.Count, len(c.Examples), errs.ErrIncompleteCorpus)
			}
			return c, nil
		}
		var doc fileExample
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return corpus.Corpus{}, fmt.Errorf("example %d: %w", len(c.Examples), err)
		}
		ex, err := decodeExample(n, doc)
		if err != nil {
			return corpus.Corpus{}, fmt.Errorf("example %d: %w", len(c.Examples), err)
		}
		c.Examples = append(c.Examples, ex)
	}
}

func encodeExample(ex corpus.TrainingExample) fileExample {
	doc := fileExample{Board: ex.State.Bytes(), Outcome: int32(ex.Outcome)}
	for i, p := range ex.Policy {
		if p != 0 {
			doc.PolicyIndex = append(doc.PolicyIndex, int32(i))
			doc.PolicyMass = append(doc.PolicyMass, p)
		}
	}
	return doc
}

func decodeExample(n int, doc fileExample) (corpus.TrainingExample, error) {
	state, err := board.FromBytes(n, doc.Board)
	if err != nil {
		return corpus.TrainingExample{}, err
	}
	if len(doc.PolicyIndex) != len(doc.PolicyMass) {
		return corpus.TrainingExample{}, fmt.Errorf("policy has %d indices and %d weights", len(doc.PolicyIndex), len(doc.PolicyMass))
	}
	policy := make([]float64, n*n+1)
	for i, idx := range doc.PolicyIndex {
		if idx < 0 || int(idx) >= len(policy) {
			return corpus.TrainingExample{}, fmt.Errorf("policy index %d out of range", idx)
		}
		policy[idx] = doc.PolicyMass[i]
	}
	return corpus.TrainingExample{State: state, Policy: policy, Outcome: int8(doc.Outcome)}, nil
}

func writeDocument(w io.Writer, doc any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

// readDocument reads one BSON document; its first four bytes are its length.
func readDocument(r io.Reader) (bson.Raw, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(size[:])
	if length < 5 || length > maxDocumentSize {
		return nil, fmt.Errorf("document length %d out of range", length)
	}
	raw := make([]byte, length)
	copy(raw, size[:])
	if _, err := io.ReadFull(r, raw[4:]); err != nil {
		return nil, err
	}
	return bson.Raw(raw), nil
}
