package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fcmServer records the last request body and answers with status/body.
func fcmServer(t *testing.T, status int, body string) (*FCMSender, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/qonnectme/messages:send", r.URL.Path)
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token", TokenType: "Bearer"})
	return newFCMSender(srv.URL, "qonnectme", ts, srv.Client()), &got
}

func TestFCMSenderAlertIncludesAPNSHeaders(t *testing.T) {
	sender, got := fcmServer(t, http.StatusOK, `{"name":"projects/qonnectme/messages/1"}`)

	err := sender.Send(context.Background(), "fcm-token-1", Message{
		Data:         map[string]string{"type": "friend_request"},
		Notification: &Notification{Title: "New friend request", Body: "janedoe wants to qonnect with you."},
	})
	require.NoError(t, err)

	msg := (*got)["message"].(map[string]any)
	require.Equal(t, "fcm-token-1", msg["token"])
	require.Equal(t, map[string]any{"title": "New friend request", "body": "janedoe wants to qonnect with you."}, msg["notification"])
	require.Equal(t, map[string]any{"priority": "HIGH"}, msg["android"])
	require.Equal(t, map[string]any{"headers": map[string]any{"apns-push-type": "alert", "apns-priority": "10"}}, msg["apns"])
}

func TestFCMSenderDataOnly(t *testing.T) {
	sender, got := fcmServer(t, http.StatusOK, `{}`)

	require.NoError(t, sender.Send(context.Background(), "fcm-token-1", Message{Data: map[string]string{"type": "friend_request"}}))

	msg := (*got)["message"].(map[string]any)
	require.NotContains(t, msg, "notification")
	require.NotContains(t, msg, "apns")
	require.Equal(t, map[string]any{"type": "friend_request"}, msg["data"])
}

func TestFCMSenderErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		invalid bool
		msg     string
	}{
		{
			name:    "unregistered",
			status:  http.StatusNotFound,
			body:    `{"error":{"status":"NOT_FOUND","message":"Requested entity was not found.","details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`,
			invalid: true,
		},
		{
			name:   "quota",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded."}}`,
			msg:    "fcm send failed: status 429 RESOURCE_EXHAUSTED: Quota exceeded.",
		},
		{
			name:   "not json",
			status: http.StatusBadGateway,
			body:   "upstream down",
			msg:    "fcm send failed: status 502: upstream down",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sender, _ := fcmServer(t, tc.status, tc.body)
			err := sender.Send(context.Background(), "tok", Message{Data: map[string]string{"k": "v"}})
			if tc.invalid {
				require.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NotErrorIs(t, err, ErrInvalidToken)
			require.EqualError(t, err, tc.msg)
		})
	}
}

func TestFCMSenderRequiresToken(t *testing.T) {
	var nilSender *FCMSender
	require.Error(t, nilSender.Send(context.Background(), "tok", Message{}))

	sender := newFCMSender("http://unused", "qonnectme", oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}), http.DefaultClient)
	require.EqualError(t, sender.Send(context.Background(), " ", Message{}), "fcm token required")
}
