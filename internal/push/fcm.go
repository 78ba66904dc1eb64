package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/carcall/signal-server-go/internal/errors"
	"github.com/carcall/signal-server-go/internal/model"
	"github.com/carcall/signal-server-go/internal/signaling"
)

const sendTimeout = 10 * time.Second

// Error strings FCM returns for tokens that will never work again.
const (
	errNotRegistered       = "NotRegistered"
	errInvalidRegistration = "InvalidRegistration"
)

// FCMSender delivers incoming-call notifications through the FCM HTTP
// endpoint. With an empty server key the sender is disabled: every send
// reports not-delivered without error, and the ring timer still governs
// the attempt.
type FCMSender struct {
	client    *http.Client
	endpoint  string
	serverKey string
}

func NewFCMSender(endpoint, serverKey string) *FCMSender {
	return &FCMSender{
		client:    &http.Client{Timeout: sendTimeout},
		endpoint:  endpoint,
		serverKey: serverKey,
	}
}

type fcmMessage struct {
	To           string         `json:"to"`
	Priority     string         `json:"priority"`
	TimeToLive   int            `json:"time_to_live"`
	Data         map[string]any `json:"data"`
	Notification map[string]any `json:"notification"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

func (s *FCMSender) SendCallNotification(ctx context.Context, token string, n signaling.CallNotification) (signaling.PushResult, error) {
	if s.serverKey == "" {
		log.Debug().Msg("push disabled (no FCM server key), skipping notification")
		return signaling.PushResult{}, nil
	}

	kind := "audio"
	if n.MediaKind == model.MediaVideo {
		kind = "video"
	}

	msg := fcmMessage{
		To:         token,
		Priority:   "high",
		TimeToLive: 30,
		Data: map[string]any{
			"type":           "incoming_call",
			"callerIdentity": n.CallerIdentity,
			"callerName":     n.CallerName,
			"mediaKind":      kind,
			"signal":         string(n.Signal),
			"timestamp":      fmt.Sprintf("%d", time.Now().UnixMilli()),
		},
		Notification: map[string]any{
			"title": fmt.Sprintf("Incoming %s call", kind),
			"body":  fmt.Sprintf("%s is calling you", n.CallerName),
			"tag":   "incoming_call",
			"sound": "default",
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return signaling.PushResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return signaling.PushResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return signaling.PushResult{}, apperrors.External("FCM", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return signaling.PushResult{}, apperrors.External("FCM", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return signaling.PushResult{}, apperrors.External("FCM", err)
	}

	if parsed.Failure > 0 && len(parsed.Results) > 0 {
		fcmErr := parsed.Results[0].Error
		log.Warn().Str("error", fcmErr).Msg("fcm delivery failed")
		invalidate := fcmErr == errNotRegistered || fcmErr == errInvalidRegistration
		return signaling.PushResult{Delivered: false, InvalidateToken: invalidate}, nil
	}

	log.Debug().Str("callerIdentity", n.CallerIdentity).Msg("push notification sent")
	return signaling.PushResult{Delivered: true}, nil
}
