package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cornucopia/pkg/domain"
)

func script(text string) domain.SynthesizedScript {
	return domain.SynthesizedScript{Type: domain.ExperimentPCRSetup, Text: text, Fingerprint: domain.Fingerprint(text)}
}

func TestKeyLayout(t *testing.T) {
	fp := domain.Fingerprint("x")
	key := Key(domain.ExperimentSerialDilution, "tok", fp)
	assert.Equal(t, "protocols/serial_dilution/serial_dilution_tok_"+fp[:12]+".py", key)
	assert.Equal(t, "serial_dilution_tok.py", FileName(domain.ExperimentSerialDilution, "tok"))
}

func stores(t *testing.T) map[string]Store {
	fsStore, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{"fs": fsStore, "memory": NewMemory(), "s3": NewMockS3ForTests()}
}

func TestArchiveSaveLoad(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := NewArchive(store)
			s := script("print('pcr')\n")
			art, err := a.Save(ctx, s, "req-1", "tok1")
			require.NoError(t, err)
			assert.Equal(t, Key(s.Type, "tok1", s.Fingerprint), art.Key)
			assert.Equal(t, "pcr_setup_tok1.py", art.Name)

			text, info, err := a.Load(ctx, art.Key)
			require.NoError(t, err)
			assert.Equal(t, s.Text, text)
			assert.Equal(t, ContentType, info.ContentType)
			assert.Equal(t, s.Fingerprint, info.Metadata[MetaFingerprint])
			assert.Equal(t, "req-1", info.Metadata[MetaRequestID])
			assert.Equal(t, "pcr_setup", info.Metadata[MetaExperimentType])

			_, err = a.Save(ctx, s, "req-1", "tok1")
			assert.ErrorIs(t, err, ErrExists)

			list, err := a.List(ctx, domain.ExperimentPCRSetup)
			require.NoError(t, err)
			require.Len(t, list, 1)
			none, err := a.List(ctx, domain.ExperimentPlateWashing)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestArchiveKeysDifferPerToken(t *testing.T) {
	ctx := context.Background()
	a := NewArchive(NewMemory())
	s := script("same text")
	one, err := a.Save(ctx, s, "r1", "t1")
	require.NoError(t, err)
	two, err := a.Save(ctx, s, "r2", "t2")
	require.NoError(t, err)
	assert.NotEqual(t, one.Key, two.Key)
	assert.Equal(t, one.Fingerprint, two.Fingerprint)
}

func TestArchiveRejectsEmptyScript(t *testing.T) {
	_, err := NewArchive(NewMemory()).Save(context.Background(), domain.SynthesizedScript{Type: domain.ExperimentPCRSetup}, "r", "t")
	assert.Error(t, err)
}

func TestMaterialize(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := NewArchive(store)
			art, err := a.Save(ctx, script("print(1)\n"), "r", "m")
			require.NoError(t, err)
			p, cleanup, err := a.Materialize(ctx, art.Key)
			require.NoError(t, err)
			b, err := os.ReadFile(p)
			require.NoError(t, err)
			assert.Equal(t, "print(1)\n", string(b))
			assert.True(t, strings.HasSuffix(p, filepath.Base(art.Key)))
			cleanup()
			if store.Driver() != DriverFilesystem {
				_, err = os.Stat(p)
				assert.True(t, os.IsNotExist(err))
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	s, err = Open(ctx, Config{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(ctx, Config{Driver: "tape"})
	assert.Error(t, err)

	t.Setenv("CORNUCOPIA_ARTIFACT_S3_BUCKET", "")
	_, err = Open(ctx, Config{Driver: "s3"})
	assert.Error(t, err)
}
