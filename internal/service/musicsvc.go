package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"qonnectme/internal/domain"
	"qonnectme/internal/media"
	"qonnectme/internal/music"
)

// MaxSongBytes caps a single uploaded audio file.
const MaxSongBytes = 20 << 20

var songExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".wav": true, ".ogg": true, ".oga": true, ".flac": true, ".webm": true,
}

type MusicService struct {
	Library *music.Library
	Media   media.Store
	Logger  *slog.Logger
}

func (s *MusicService) State(userID string) music.State {
	return s.Library.Player(userID).State()
}

func (s *MusicService) PlayPause(userID string, index *int) (music.State, error) {
	st, err := s.Library.Player(userID).PlayPause(index)
	if errors.Is(err, music.ErrBadIndex) {
		return music.State{}, domain.Invalid("index", "out of range")
	}
	return st, err
}

func (s *MusicService) Next(userID string) music.State {
	return s.Library.Player(userID).Next()
}

func (s *MusicService) Prev(userID string) music.State {
	return s.Library.Player(userID).Prev()
}

func (s *MusicService) Ended(userID string) music.State {
	return s.Library.Player(userID).Ended()
}

// DeleteSong removes the song from the playlist and, for uploaded songs,
// its stored file.
func (s *MusicService) DeleteSong(ctx context.Context, userID string, songID int) (music.State, error) {
	removed, st, err := s.Library.Player(userID).Delete(songID)
	if err != nil {
		if errors.Is(err, music.ErrSongNotFound) {
			return music.State{}, domain.ErrNotFound
		}
		return music.State{}, err
	}
	if s.Media != nil {
		if key, ok := s.Media.KeyForURL(removed.URL); ok {
			if err := s.Media.Delete(ctx, key); err != nil {
				s.logger().Error("song file delete failed", "err", err, "key", key)
			}
		}
	}
	return st, nil
}

// UploadSong stores an audio file and appends it to the user's playlist.
func (s *MusicService) UploadSong(ctx context.Context, userID, filename, contentType string, r io.Reader) (music.Song, music.State, error) {
	if s.Media == nil {
		return music.Song{}, music.State{}, domain.ErrUnavailable
	}

	ext := strings.ToLower(path.Ext(filename))
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "audio/") && !songExtensions[ext] {
		return music.Song{}, music.State{}, domain.Invalid("file", "must be an audio file")
	}
	if mediaType == "" || !strings.HasPrefix(mediaType, "audio/") {
		mediaType = mime.TypeByExtension(ext)
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSongBytes+1))
	if err != nil {
		return music.Song{}, music.State{}, err
	}
	if len(data) == 0 {
		return music.Song{}, music.State{}, domain.Invalid("file", "required")
	}
	if len(data) > MaxSongBytes {
		return music.Song{}, music.State{}, domain.Invalid("file", "must be 20 MiB or less")
	}
	if !songExtensions[ext] {
		ext = ""
	}

	key := media.NewKey("songs", userID, ext)
	url, err := s.Media.Put(ctx, key, bytes.NewReader(data), mediaType)
	if err != nil {
		return music.Song{}, music.State{}, err
	}

	song, st := s.Library.Player(userID).Upload(filename, url)
	return song, st, nil
}

// Forget drops the user's player, removing uploaded files.
func (s *MusicService) Forget(ctx context.Context, userID string) {
	st := s.Library.Player(userID).State()
	s.Library.Forget(userID)
	if s.Media == nil {
		return
	}
	for _, song := range st.Songs {
		if key, ok := s.Media.KeyForURL(song.URL); ok {
			if err := s.Media.Delete(ctx, key); err != nil {
				s.logger().Warn("song file delete failed", "err", err, "key", key)
			}
		}
	}
}

func (s *MusicService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
