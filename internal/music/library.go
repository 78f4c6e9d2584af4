package music

import "sync"

// Library keeps one Player per user for the lifetime of the process.
type Library struct {
	mu      sync.Mutex
	players map[string]*Player
	seed    func() []Song
}

func NewLibrary() *Library {
	return &Library{
		players: make(map[string]*Player),
		seed:    DemoPlaylist,
	}
}

func (l *Library) Player(userID string) *Player {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.players[userID]
	if !ok {
		p = NewPlayer(l.seed())
		l.players[userID] = p
	}
	return p
}

// Forget drops the player of a deleted user.
func (l *Library) Forget(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.players, userID)
}
