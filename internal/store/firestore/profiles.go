// Package firestore stores profiles in Cloud Firestore through its REST API.
//
// A profile lives in users/{uid}. Each claimed username has a document in
// usernames/{lowercase name} holding the owner's uid, so a claim is a
// create-only write that fails when the name is already taken.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"qonnectme/internal/domain"

	firestoreapi "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	usersCollection     = "users"
	usernamesCollection = "usernames"
)

type ProfilesStore struct {
	docs     *firestoreapi.ProjectsDatabasesDocumentsService
	database string
	Now      func() time.Time
}

func NewProfilesStore(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*ProfilesStore, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("firestore project id required")
	}
	if databaseID == "" {
		databaseID = "(default)"
	}
	opts = append([]option.ClientOption{option.WithScopes(firestoreapi.DatastoreScope)}, opts...)
	svc, err := firestoreapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &ProfilesStore{
		docs:     svc.Projects.Databases.Documents,
		database: "projects/" + projectID + "/databases/" + databaseID,
	}, nil
}

func (s *ProfilesStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ProfilesStore) docName(collection, id string) string {
	return s.database + "/documents/" + collection + "/" + id
}

func (s *ProfilesStore) get(ctx context.Context, collection, id string) (*firestoreapi.Document, error) {
	doc, err := s.docs.Get(s.docName(collection, id)).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *ProfilesStore) commit(ctx context.Context, writes ...*firestoreapi.Write) error {
	_, err := s.docs.Commit(s.database, &firestoreapi.CommitRequest{Writes: writes}).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusConflict) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *ProfilesStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if !validDocID(userID) {
		return domain.Profile{}, domain.ErrNotFound
	}
	doc, err := s.get(ctx, usersCollection, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	p := profileFromDoc(doc)
	p.UserID = userID
	return p, nil
}

func (s *ProfilesStore) GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error) {
	key := domain.UsernameKey(username)
	if !validDocID(key) {
		return domain.Profile{}, domain.ErrNotFound
	}
	claim, err := s.get(ctx, usernamesCollection, key)
	if err != nil {
		return domain.Profile{}, err
	}
	uid := stringField(claim, "uid")
	if uid == "" {
		return domain.Profile{}, domain.ErrNotFound
	}
	return s.GetProfile(ctx, uid)
}

// GetProfiles skips ids that have no profile document.
func (s *ProfilesStore) GetProfiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(userIDs))
	for _, id := range userIDs {
		if _, ok := out[id]; ok {
			continue
		}
		p, err := s.GetProfile(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

func (s *ProfilesStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	key := domain.UsernameKey(username)
	if !validDocID(key) {
		return false, nil
	}
	_, err := s.get(ctx, usernamesCollection, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// CreateProfile claims the username and writes the profile fields in one
// commit. Other fields already on users/{uid} are preserved.
func (s *ProfilesStore) CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	err := s.commit(ctx,
		s.claimWrite(p.Username, p.UserID),
		s.profileWrite(p.UserID, map[string]firestoreapi.Value{
			"username":  stringValue(p.Username),
			"name":      stringValue(p.Name),
			"bio":       stringValue(p.Bio),
			"avatarUrl": stringValue(p.AvatarURL),
			"updatedAt": timestampValue(p.UpdatedAt),
		}),
	)
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func (s *ProfilesStore) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate, when time.Time) (domain.Profile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	fields := map[string]firestoreapi.Value{"updatedAt": timestampValue(when)}
	var writes []*firestoreapi.Write
	if upd.Name != nil {
		p.Name = *upd.Name
		fields["name"] = stringValue(p.Name)
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
		fields["bio"] = stringValue(p.Bio)
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = *upd.AvatarURL
		fields["avatarUrl"] = stringValue(p.AvatarURL)
	}
	if upd.Username != nil {
		if domain.UsernameKey(*upd.Username) != domain.UsernameKey(p.Username) {
			if old := domain.UsernameKey(p.Username); validDocID(old) {
				writes = append(writes, &firestoreapi.Write{Delete: s.docName(usernamesCollection, old)})
			}
			writes = append(writes, s.claimWrite(*upd.Username, userID))
		}
		p.Username = *upd.Username
		fields["username"] = stringValue(p.Username)
	}
	p.UpdatedAt = when

	writes = append(writes, s.profileWrite(userID, fields))
	if err := s.commit(ctx, writes...); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// SearchProfiles only supports an exact, case-insensitive username match.
func (s *ProfilesStore) SearchProfiles(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.Profile, error) {
	p, err := s.GetProfileByUsername(ctx, strings.TrimSpace(q))
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Profile{}, nil
	}
	if err != nil {
		return nil, err
	}
	if limit == 0 || p.UserID == excludeUserID {
		return []domain.Profile{}, nil
	}
	return []domain.Profile{p}, nil
}

// DeleteProfile removes users/{uid} and releases the username claim.
func (s *ProfilesStore) DeleteProfile(ctx context.Context, userID string) error {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	writes := []*firestoreapi.Write{{Delete: s.docName(usersCollection, userID)}}
	if key := domain.UsernameKey(p.Username); validDocID(key) {
		writes = append(writes, &firestoreapi.Write{Delete: s.docName(usernamesCollection, key)})
	}
	return s.commit(ctx, writes...)
}

func (s *ProfilesStore) claimWrite(username, userID string) *firestoreapi.Write {
	return &firestoreapi.Write{
		Update: &firestoreapi.Document{
			Name:   s.docName(usernamesCollection, domain.UsernameKey(username)),
			Fields: map[string]firestoreapi.Value{"uid": stringValue(userID)},
		},
		CurrentDocument: &firestoreapi.Precondition{Exists: false, ForceSendFields: []string{"Exists"}},
	}
}

func (s *ProfilesStore) profileWrite(userID string, fields map[string]firestoreapi.Value) *firestoreapi.Write {
	paths := make([]string, 0, len(fields))
	for k := range fields {
		paths = append(paths, k)
	}
	return &firestoreapi.Write{
		Update:     &firestoreapi.Document{Name: s.docName(usersCollection, userID), Fields: fields},
		UpdateMask: &firestoreapi.DocumentMask{FieldPaths: paths},
	}
}

func profileFromDoc(doc *firestoreapi.Document) domain.Profile {
	p := domain.Profile{
		Username:  stringField(doc, "username"),
		Name:      stringField(doc, "name"),
		Bio:       stringField(doc, "bio"),
		AvatarURL: stringField(doc, "avatarUrl"),
	}
	if v, ok := doc.Fields["updatedAt"]; ok && v.TimestampValue != "" {
		if t, err := time.Parse(time.RFC3339Nano, v.TimestampValue); err == nil {
			p.UpdatedAt = t
		}
	}
	return p
}

func stringField(doc *firestoreapi.Document, name string) string {
	return doc.Fields[name].StringValue
}

// stringValue always sends the field so an empty string is stored as "".
func stringValue(s string) firestoreapi.Value {
	return firestoreapi.Value{StringValue: s, ForceSendFields: []string{"StringValue"}}
}

func timestampValue(t time.Time) firestoreapi.Value {
	return firestoreapi.Value{TimestampValue: t.UTC().Format(time.RFC3339Nano)}
}

// validDocID rejects ids Firestore would read as a path.
func validDocID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.Contains(id, "/")
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
