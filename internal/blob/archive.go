package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cornucopia/internal/blob/core"
	"cornucopia/pkg/domain"
)

// Archive layout and metadata keys.
const (
	ContentType = "text/x-python"
	KeyPrefix   = "protocols"

	MetaExperimentType = "experiment_type"
	MetaFingerprint    = "fingerprint"
	MetaRequestID      = "request_id"
)

// Artifact is a stored script.
type Artifact struct {
	Key         string                `json:"key"`
	Name        string                `json:"name"`
	Type        domain.ExperimentType `json:"experiment_type"`
	Fingerprint string                `json:"fingerprint"`
	RequestID   string                `json:"request_id"`
	Info        Info                  `json:"info"`
}

// FileName is the device-facing file name of a script.
func FileName(t domain.ExperimentType, token string) string {
	return fmt.Sprintf("%s_%s.py", t, token)
}

// Key is the archive key of a script.
func Key(t domain.ExperimentType, token, fingerprint string) string {
	fp := fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return path.Join(KeyPrefix, string(t), fmt.Sprintf("%s_%s_%s.py", t, token, fp))
}

// Archive persists rendered scripts write-once.
type Archive struct {
	store Store
}

// NewArchive wraps a store.
func NewArchive(store Store) *Archive {
	return &Archive{store: store}
}

// Driver reports the backing store driver.
func (a *Archive) Driver() Driver { return a.store.Driver() }

// Save writes the script text under its archive key. A second Save of the
// same key fails with ErrExists.
func (a *Archive) Save(ctx context.Context, script domain.SynthesizedScript, requestID, token string) (Artifact, error) {
	if script.Text == "" {
		return Artifact{}, fmt.Errorf("archive %s: empty script", script.Type)
	}
	fp := script.Fingerprint
	if fp == "" {
		fp = domain.Fingerprint(script.Text)
	}
	key := Key(script.Type, token, fp)
	info, err := a.store.Put(ctx, key, strings.NewReader(script.Text), PutOptions{
		ContentType: ContentType,
		Metadata: map[string]string{
			MetaExperimentType: string(script.Type),
			MetaFingerprint:    fp,
			MetaRequestID:      requestID,
		},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("archive %s: %w", key, err)
	}
	return Artifact{
		Key:         key,
		Name:        FileName(script.Type, token),
		Type:        script.Type,
		Fingerprint: fp,
		RequestID:   requestID,
		Info:        info,
	}, nil
}

// Load returns the text stored under key.
func (a *Archive) Load(ctx context.Context, key string) (string, Info, error) {
	info, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return "", Info{}, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", Info{}, fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), info, nil
}

// List returns the stored scripts, optionally restricted to one type.
func (a *Archive) List(ctx context.Context, t domain.ExperimentType) ([]Info, error) {
	prefix := KeyPrefix + "/"
	if t != "" {
		prefix += string(t) + "/"
	}
	return a.store.List(ctx, prefix)
}

// Materialize returns a local file path holding the script at key. Stores
// that already keep files locally return their own path; others get a
// temporary copy removed by the returned cleanup.
func (a *Archive) Materialize(ctx context.Context, key string) (string, func(), error) {
	if lp, ok := a.store.(core.LocalPather); ok {
		p, err := lp.LocalPath(key)
		return p, func() {}, err
	}
	text, _, err := a.Load(ctx, key)
	if err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp("", "cornucopia-artifact-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	p := filepath.Join(dir, path.Base(key))
	if err := os.WriteFile(p, []byte(text), 0o600); err != nil {
		cleanup()
		return "", nil, err
	}
	return p, cleanup, nil
}
