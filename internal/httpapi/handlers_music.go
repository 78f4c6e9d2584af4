package httpapi

import (
	"net/http"
	"strconv"

	"qonnectme/internal/domain"
	"qonnectme/internal/music"
	"qonnectme/internal/service"
)

func (a *api) handleMusicState(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	WriteJSON(w, http.StatusOK, a.musicSvc.State(u.ID))
}

// The index is optional; without one the current song is toggled.
type playRequest struct {
	Index *int `json:"index"`
}

func (a *api) handleMusicPlay(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req playRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}

	st, err := a.musicSvc.PlayPause(u.ID, req.Index)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

func (a *api) handleMusicNext(w http.ResponseWriter, r *http.Request) {
	a.musicStep(w, r, a.musicSvc.Next)
}

func (a *api) handleMusicPrev(w http.ResponseWriter, r *http.Request) {
	a.musicStep(w, r, a.musicSvc.Prev)
}

func (a *api) handleMusicEnded(w http.ResponseWriter, r *http.Request) {
	a.musicStep(w, r, a.musicSvc.Ended)
}

func (a *api) musicStep(w http.ResponseWriter, r *http.Request, fn func(userID string) music.State) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	WriteJSON(w, http.StatusOK, fn(u.ID))
}

type uploadSongResponse struct {
	Song  music.Song  `json:"song"`
	State music.State `json:"state"`
}

func (a *api) handleMusicUpload(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	const maxBody = service.MaxSongBytes + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(maxBody); err != nil {
		writeBadUpload(w, err, "file", "song must be 20 MiB or less")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteDomainError(w, domain.Invalid("file", "required"))
		return
	}
	defer file.Close()

	song, st, err := a.musicSvc.UploadSong(r.Context(), u.ID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, uploadSongResponse{Song: song, State: st})
}

func (a *api) handleMusicDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, domain.ErrNotFound)
		return
	}

	st, err := a.musicSvc.DeleteSong(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}
