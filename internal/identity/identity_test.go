package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOnceThenReuse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "identity.json")

	first, err := Open(path).ParticipantID()
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)
	assert.FileExists(t, path)

	second, err := Open(path).ParticipantID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"participant_id":"device-7"}`), 0o600))

	id, err := Open(path).ParticipantID()
	require.NoError(t, err)
	assert.Equal(t, "device-7", id)
}

func TestEmptyIDRegenerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	id, err := Open(path).ParticipantID()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	again, err := Open(path).ParticipantID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := Open(path).ParticipantID()
	assert.Error(t, err)
}
