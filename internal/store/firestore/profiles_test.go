package firestore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"qonnectme/internal/domain"

	"github.com/stretchr/testify/require"
	firestoreapi "google.golang.org/api/firestore/v1"
	"google.golang.org/api/option"
)

// fakeFirestore serves the document get and commit endpoints from memory.
type fakeFirestore struct {
	mu   sync.Mutex
	docs map[string]*firestoreapi.Document
}

func (f *fakeFirestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := strings.TrimPrefix(r.URL.Path, "/v1/")
	switch {
	case r.Method == http.MethodGet:
		doc, ok := f.docs[name]
		if !ok {
			writeGoogleError(w, http.StatusNotFound, "NOT_FOUND")
			return
		}
		_ = json.NewEncoder(w).Encode(doc)
	case r.Method == http.MethodPost && strings.HasSuffix(name, "/documents:commit"):
		var req firestoreapi.CommitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeGoogleError(w, http.StatusBadRequest, "INVALID_ARGUMENT")
			return
		}
		for _, wr := range req.Writes {
			if wr.Update != nil && wr.CurrentDocument != nil {
				if _, exists := f.docs[wr.Update.Name]; exists {
					writeGoogleError(w, http.StatusConflict, "ALREADY_EXISTS")
					return
				}
			}
		}
		for _, wr := range req.Writes {
			if wr.Delete != "" {
				delete(f.docs, wr.Delete)
				continue
			}
			doc, ok := f.docs[wr.Update.Name]
			if !ok || wr.UpdateMask == nil {
				doc = &firestoreapi.Document{Name: wr.Update.Name, Fields: map[string]firestoreapi.Value{}}
				f.docs[wr.Update.Name] = doc
			}
			for k, v := range wr.Update.Fields {
				doc.Fields[k] = v
			}
		}
		_, _ = w.Write([]byte(`{}`))
	default:
		writeGoogleError(w, http.StatusNotFound, "NOT_FOUND")
	}
}

func writeGoogleError(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": strings.ToLower(status), "status": status},
	})
}

func newTestStore(t *testing.T) (*ProfilesStore, *fakeFirestore) {
	t.Helper()
	fake := &fakeFirestore{docs: map[string]*firestoreapi.Document{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewProfilesStore(context.Background(), "demo", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	store.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return store, fake
}

func TestUsernameExists(t *testing.T) {
	store, fake := newTestStore(t)
	fake.docs["projects/demo/databases/(default)/documents/usernames/alice"] = &firestoreapi.Document{
		Fields: map[string]firestoreapi.Value{"uid": stringValue("u1")},
	}

	ok, err := store.UsernameExists(context.Background(), "Alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.UsernameExists(context.Background(), "bob")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.UsernameExists(context.Background(), "a/b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateAndLoadProfile(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProfile(ctx, domain.Profile{UserID: "u1", Username: "Alice", Name: "Alice A"})
	require.NoError(t, err)

	p, err := store.GetProfileByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", p.UserID)
	require.Equal(t, "Alice", p.Username)
	require.Equal(t, "Alice A", p.Name)
	require.Equal(t, store.now(), p.UpdatedAt)

	_, err = store.CreateProfile(ctx, domain.Profile{UserID: "u2", Username: "ALICE"})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestUpdateProfileMovesUsernameClaim(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProfile(ctx, domain.Profile{UserID: "u1", Username: "alice", Bio: "hi"})
	require.NoError(t, err)

	name := "alice_2"
	when := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	p, err := store.UpdateProfile(ctx, "u1", domain.ProfileUpdate{Username: &name}, when)
	require.NoError(t, err)
	require.Equal(t, "alice_2", p.Username)
	require.Equal(t, "hi", p.Bio)

	_, stillClaimed := fake.docs["projects/demo/databases/(default)/documents/usernames/alice"]
	require.False(t, stillClaimed)

	loaded, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice_2", loaded.Username)
	require.Equal(t, "hi", loaded.Bio)
	require.Equal(t, when, loaded.UpdatedAt)
}

func TestSearchProfilesExactMatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProfile(ctx, domain.Profile{UserID: "u1", Username: "alice"})
	require.NoError(t, err)

	got, err := store.SearchProfiles(ctx, "ALICE", 20, "")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = store.SearchProfiles(ctx, "ali", 20, "")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = store.SearchProfiles(ctx, "alice", 20, "u1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDeleteProfile(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProfile(ctx, domain.Profile{UserID: "u1", Username: "alice"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteProfile(ctx, "u1"))

	ok, err := store.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, store.DeleteProfile(ctx, "u1"), domain.ErrNotFound)
}

func TestUpdateProfileStoresEmptyStrings(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProfile(ctx, domain.Profile{UserID: "u1", Username: "alice", Bio: "hi", AvatarURL: "https://cdn.example.com/a.jpg"})
	require.NoError(t, err)

	empty := ""
	_, err = store.UpdateProfile(ctx, "u1", domain.ProfileUpdate{Bio: &empty, AvatarURL: &empty}, store.now())
	require.NoError(t, err)

	doc := fake.docs["projects/demo/databases/(default)/documents/users/u1"]
	require.Contains(t, doc.Fields, "bio")
	require.Contains(t, doc.Fields, "avatarUrl")

	loaded, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "", loaded.Bio)
	require.Equal(t, "", loaded.AvatarURL)
	require.Equal(t, "alice", loaded.Username)
}
