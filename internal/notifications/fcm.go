package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	fcmScope    = "https://www.googleapis.com/auth/firebase.messaging"
	fcmEndpoint = "https://fcm.googleapis.com"
)

// ErrInvalidToken means FCM no longer knows the device token; callers
// should forget it.
var ErrInvalidToken = errors.New("fcm_invalid_token")

// Message is a push payload. Data-only messages are delivered silently;
// a Notification adds a visible alert on both Android and iOS.
type Message struct {
	Data         map[string]string
	Notification *Notification
}

type Notification struct {
	Title string
	Body  string
}

// FCMSender posts messages to the FCM HTTP v1 API.
type FCMSender struct {
	url    string
	client *http.Client
}

// NewFCMSender loads service account credentials from credentialsPath.
// projectID falls back to the one in the credentials file.
func NewFCMSender(ctx context.Context, projectID, credentialsPath string) (*FCMSender, error) {
	if strings.TrimSpace(credentialsPath) == "" {
		return nil, errors.New("fcm credentials path required")
	}
	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("load fcm credentials: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, errors.New("fcm project id required")
	}
	return newFCMSender(fcmEndpoint, projectID, creds.TokenSource, &http.Client{Timeout: 10 * time.Second}), nil
}

func newFCMSender(endpoint, projectID string, ts oauth2.TokenSource, base *http.Client) *FCMSender {
	client := *base
	client.Transport = &oauth2.Transport{Source: ts, Base: base.Transport}
	return &FCMSender{
		url:    fmt.Sprintf("%s/v1/projects/%s/messages:send", endpoint, projectID),
		client: &client,
	}
}

func (s *FCMSender) Send(ctx context.Context, token string, m Message) error {
	if s == nil {
		return errors.New("fcm sender not configured")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("fcm token required")
	}
	body, err := json.Marshal(fcmRequest{Message: newFCMMessage(token, m)})
	if err != nil {
		return fmt.Errorf("marshal fcm payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send fcm request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 == 2 {
		return nil
	}
	return fcmError(resp.StatusCode, raw)
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Data         map[string]string `json:"data,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
	Android      fcmAndroid        `json:"android"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmAndroid struct {
	Priority string `json:"priority"`
}

type fcmAPNS struct {
	Headers map[string]string `json:"headers"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title string `json:"title,omitempty"`
		Body  string `json:"body,omitempty"`
	}{n.Title, n.Body})
}

// newFCMMessage always sends Android at high priority so data-only pushes
// wake the app. Alerts also carry the APNs headers iOS needs to show them.
func newFCMMessage(token string, m Message) fcmMessage {
	out := fcmMessage{
		Token:        token,
		Data:         m.Data,
		Notification: m.Notification,
		Android:      fcmAndroid{Priority: "HIGH"},
	}
	if m.Notification != nil {
		out.APNS = &fcmAPNS{Headers: map[string]string{
			"apns-push-type": "alert",
			"apns-priority":  "10",
		}}
	}
	return out
}

type fcmErrorBody struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func fcmError(status int, body []byte) error {
	var e fcmErrorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		return fmt.Errorf("fcm send failed: status %d: %s", status, bytes.TrimSpace(body))
	}
	for _, d := range e.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return fmt.Errorf("%w: %s", ErrInvalidToken, e.Error.Message)
		}
	}
	return fmt.Errorf("fcm send failed: status %d %s: %s", status, e.Error.Status, e.Error.Message)
}
