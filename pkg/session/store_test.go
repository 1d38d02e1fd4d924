package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetCreatesDefault(t *testing.T) {
	store := NewStore()

	sess := store.Get(42)
	require.NotNil(t, sess)
	assert.Equal(t, int64(42), sess.UserID)
	assert.Equal(t, StateAwaitingLanguage, sess.State)
	assert.Equal(t, 0, sess.History.Len())
	assert.True(t, sess.Fragments.Empty())
	assert.Equal(t, 1, store.Len())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore()

	sess := store.Get(1)
	sess.State = StateMainMenu
	sess.History.Append(RoleUser, "not committed")

	again := store.Get(1)
	assert.Equal(t, StateAwaitingLanguage, again.State)
	assert.Equal(t, 0, again.History.Len())
}

func TestStore_PutOverwrites(t *testing.T) {
	store := NewStore()

	sess := store.Get(1)
	sess.State = StateDocumentAssembly
	sess.Language = "en"
	sess.Fragments.Append("A", 10)
	require.NoError(t, store.Put(sess))

	loaded := store.Get(1)
	assert.Equal(t, StateDocumentAssembly, loaded.State)
	assert.Equal(t, "en", loaded.Language)
	assert.Equal(t, "A", loaded.Fragments.Body())
}

func TestStore_PutRejectsInvariantViolations(t *testing.T) {
	store := NewStore()

	t.Run("invalid state", func(t *testing.T) {
		sess := store.Get(1)
		sess.State = State("nowhere")
		assert.Error(t, store.Put(sess))
	})

	t.Run("fragments outside document assembly", func(t *testing.T) {
		sess := store.Get(1)
		sess.State = StateAIChat
		sess.Fragments.Append("stray", 1)
		err := store.Put(sess)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside document assembly")
	})

	assert.Equal(t, StateAwaitingLanguage, store.Get(1).State)
}

func TestStore_Reset(t *testing.T) {
	store := NewStore()

	sess := store.Get(5)
	sess.State = StateAIChat
	sess.Language = "ru"
	sess.History.Append(RoleUser, "hi")
	require.NoError(t, store.Put(sess))

	fresh := store.Reset(5)
	assert.Equal(t, StateAwaitingLanguage, fresh.State)
	assert.Empty(t, fresh.Language)
	assert.Equal(t, 0, store.Get(5).History.Len())
}

func TestStore_Snapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.json")

	store := NewStore()
	sess := store.Get(7)
	sess.State = StateDocumentAssembly
	sess.Language = "uz"
	sess.History.Append(RoleUser, "salom")
	sess.Fragments.Append("A", 1)
	sess.Fragments.SetPromptID(2)
	require.NoError(t, store.Put(sess))

	require.NoError(t, store.SaveSnapshot(path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	restored := NewStore()
	require.NoError(t, restored.LoadSnapshot(path))

	got := restored.Get(7)
	assert.Equal(t, StateDocumentAssembly, got.State)
	assert.Equal(t, "uz", got.Language)
	assert.Equal(t, 1, got.History.Len())
	assert.Equal(t, "A", got.Fragments.Body())
	assert.Equal(t, 2, got.Fragments.PromptID())
}

func TestStore_LoadSnapshotMissingFile(t *testing.T) {
	store := NewStore()
	err := store.LoadSnapshot(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestStore_LoadSnapshotSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	raw := `{"sessions":[
		{"user_id":1,"state":"main_menu","history":[],"fragments":{"fragments":[]}},
		{"user_id":2,"state":"bogus","history":[],"fragments":{"fragments":[]}},
		{"user_id":3,"state":"ai_chat","history":[],"fragments":{"fragments":[{"text":"x","message_id":1}]}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0600))

	store := NewStore()
	require.NoError(t, store.LoadSnapshot(path))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, StateMainMenu, store.Get(1).State)
}

func TestSession_LeaveWorkflow(t *testing.T) {
	sess := New(1)
	sess.State = StateDocumentAssembly
	sess.History.Append(RoleUser, "x")
	sess.Fragments.Append("y", 1)
	sess.HeldPhoto = "file"

	sess.LeaveWorkflow()

	assert.Equal(t, StateMainMenu, sess.State)
	assert.Equal(t, 0, sess.History.Len())
	assert.True(t, sess.Fragments.Empty())
	assert.Empty(t, sess.HeldPhoto)
	assert.NoError(t, sess.Validate())
}

func TestState_Classification(t *testing.T) {
	assert.False(t, StateAwaitingLanguage.IsWorkflow())
	assert.False(t, StateMainMenu.IsWorkflow())
	assert.True(t, StateAIChat.IsWorkflow())
	assert.True(t, StateImageCaptionText.IsWorkflow())
	assert.Equal(t, StateImageCaption, StateImageCaptionText.Workflow())
	assert.False(t, State("").Valid())
	assert.Len(t, States(), 10)
}
