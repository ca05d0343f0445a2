package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"flapneat/internal/model"
)

// ErrArtifactNotFound is returned when no best-policy artifact exists yet.
var ErrArtifactNotFound = errors.New("policy artifact not found")

// WritePolicyArtifact stores the artifact as zstd-compressed JSON, replacing
// any previous file at path.
func WritePolicyArtifact(path string, artifact model.PolicyArtifact) error {
	payload, err := EncodePolicyArtifact(artifact)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeCompressed(f, payload); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeCompressed(w io.Writer, payload []byte) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	if _, err := bw.Write(payload); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadPolicyArtifact(path string) (model.PolicyArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.PolicyArtifact{}, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return model.PolicyArtifact{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return model.PolicyArtifact{}, err
	}
	defer dec.Close()

	payload, err := io.ReadAll(bufio.NewReader(dec))
	if err != nil {
		return model.PolicyArtifact{}, fmt.Errorf("decompress %s: %w", path, err)
	}
	artifact, err := DecodePolicyArtifact(payload)
	if err != nil {
		return model.PolicyArtifact{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return artifact, nil
}
