package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"qonnectme/internal/domain"
	"qonnectme/internal/music"
)

func TestMusicServiceUploadAndDeleteSong(t *testing.T) {
	mediaStore := &memMediaStore{}
	svc := &MusicService{Library: music.NewLibrary(), Media: mediaStore}
	ctx := context.Background()

	song, st, err := svc.UploadSong(ctx, "user-1", "My Track.mp3", "audio/mpeg", bytes.NewReader([]byte("ID3 fake audio")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if song.Title != "My Track" || song.ID != 4 || len(st.Songs) != 4 {
		t.Fatalf("unexpected upload result: %+v %+v", song, st)
	}
	if !strings.HasPrefix(song.URL, "/media/songs/user-1/") || !strings.HasSuffix(song.URL, ".mp3") {
		t.Fatalf("unexpected url: %s", song.URL)
	}

	st, err = svc.DeleteSong(ctx, "user-1", song.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(st.Songs) != 3 || len(mediaStore.deleted) != 1 {
		t.Fatalf("unexpected state after delete: %+v deleted=%v", st, mediaStore.deleted)
	}

	if _, err := svc.DeleteSong(ctx, "user-1", song.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMusicServiceUploadRejectsNonAudio(t *testing.T) {
	svc := &MusicService{Library: music.NewLibrary(), Media: &memMediaStore{}}
	_, _, err := svc.UploadSong(context.Background(), "user-1", "notes.txt", "text/plain", strings.NewReader("hello"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMusicServiceUploadRejectsOversize(t *testing.T) {
	svc := &MusicService{Library: music.NewLibrary(), Media: &memMediaStore{}}
	big := bytes.NewReader(make([]byte, MaxSongBytes+1))
	_, _, err := svc.UploadSong(context.Background(), "user-1", "big.mp3", "audio/mpeg", big)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMusicServicePlayPauseBadIndex(t *testing.T) {
	svc := &MusicService{Library: music.NewLibrary()}
	idx := 7
	if _, err := svc.PlayPause("user-1", &idx); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMusicServiceNextWraps(t *testing.T) {
	svc := &MusicService{Library: music.NewLibrary()}
	var st music.State
	for i := 0; i < 3; i++ {
		st = svc.Next("user-1")
	}
	if st.CurrentIndex == nil || *st.CurrentIndex != 0 {
		t.Fatalf("expected wrap to 0, got %v", st.CurrentIndex)
	}
}
