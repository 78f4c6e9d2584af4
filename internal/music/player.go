// Package music holds the per-user playback state: a playlist, the
// selected track and whether it is playing.
package music

import (
	"errors"
	"path"
	"strings"
	"sync"
)

var (
	ErrSongNotFound = errors.New("song not found")
	ErrBadIndex     = errors.New("index out of range")
)

const uploadedArtist = "Uploaded Artist"

type Song struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
}

type State struct {
	Songs        []Song `json:"songs"`
	CurrentIndex *int   `json:"current_index"`
	CurrentSong  *Song  `json:"current_song,omitempty"`
	IsPlaying    bool   `json:"is_playing"`
}

// DemoPlaylist is what a new player starts with.
func DemoPlaylist() []Song {
	return []Song{
		{ID: 1, Title: "Groovy Morning", Artist: "The Chillhop Collective", URL: "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3"},
		{ID: 2, Title: "Sunset Vibes", Artist: "Indie Pop Creators", URL: "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-2.mp3"},
		{ID: 3, Title: "Midnight Stroll", Artist: "Synthwave Dreams", URL: "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-3.mp3"},
	}
}

type Player struct {
	mu      sync.Mutex
	songs   []Song
	current int // -1 when nothing is selected
	playing bool
}

func NewPlayer(songs []Song) *Player {
	p := &Player{current: -1}
	p.songs = append(p.songs, songs...)
	if len(p.songs) > 0 {
		p.current = 0
	}
	return p
}

// PlayPause toggles playback of the selected track, or selects and plays
// the track at index when one is given.
func (p *Player) PlayPause(index *int) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.current
	if index != nil {
		if *index < 0 || *index >= len(p.songs) {
			return p.stateLocked(), ErrBadIndex
		}
		target = *index
	}
	if target < 0 {
		return p.stateLocked(), nil
	}

	if target == p.current {
		p.playing = !p.playing
	} else {
		p.current = target
		p.playing = true
	}
	return p.stateLocked(), nil
}

func (p *Player) Next() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step(1)
	return p.stateLocked()
}

func (p *Player) Prev() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step(-1)
	return p.stateLocked()
}

// Ended advances to the next track once the current one finishes.
func (p *Player) Ended() State {
	return p.Next()
}

func (p *Player) step(delta int) {
	n := len(p.songs)
	if n == 0 || p.current < 0 {
		return
	}
	p.current = ((p.current+delta)%n + n) % n
	p.playing = true
}

// Delete removes the song with the given id and returns it. The selection
// stays on the same track when possible.
func (p *Player) Delete(id int) (Song, State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos := -1
	for i, s := range p.songs {
		if s.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return Song{}, p.stateLocked(), ErrSongNotFound
	}

	removed := p.songs[pos]
	p.songs = append(p.songs[:pos], p.songs[pos+1:]...)
	n := len(p.songs)

	switch {
	case n == 0:
		p.current = -1
		p.playing = false
	case pos == p.current:
		p.current = p.current % n
	case pos < p.current:
		p.current--
	}
	return removed, p.stateLocked(), nil
}

// Upload appends a track for an uploaded file. The title is the file name
// without its extension.
func (p *Player) Upload(filename, url string) (Song, State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	nextID := 1
	for _, s := range p.songs {
		if s.ID >= nextID {
			nextID = s.ID + 1
		}
	}

	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	title := strings.TrimSuffix(base, path.Ext(base))
	if title == "" || title == "." || title == "/" {
		title = "Untitled"
	}

	song := Song{ID: nextID, Title: title, Artist: uploadedArtist, URL: url}
	p.songs = append(p.songs, song)
	return song, p.stateLocked()
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Player) stateLocked() State {
	st := State{
		Songs:     make([]Song, len(p.songs)),
		IsPlaying: p.playing,
	}
	copy(st.Songs, p.songs)
	if p.current >= 0 {
		idx := p.current
		song := p.songs[idx]
		st.CurrentIndex = &idx
		st.CurrentSong = &song
	}
	return st
}
