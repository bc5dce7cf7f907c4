package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/wirestream/internal/media"
)

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = time.Hour

// LiveKitEngine implements media.Engine using LiveKit as the media backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	ttl       time.Duration
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string, ttl time.Duration) *LiveKitEngine {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		ttl:       ttl,
	}
}

// RoomName maps a room id to its LiveKit room.
// LiveKit creates rooms on demand when the first participant connects.
func RoomName(roomID string) string {
	return "wirestream-" + roomID
}

// GenerateJoinInfo creates a LiveKit access token bound to the room and the
// connection identity.
func (e *LiveKitEngine) GenerateJoinInfo(_ context.Context, roomID, connID, username string) (*media.JoinInfo, error) {
	if roomID == "" || connID == "" {
		return nil, fmt.Errorf("room and connection are required")
	}

	roomName := RoomName(roomID)

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	at.SetVideoGrant(grant).
		SetIdentity(connID).
		SetName(username).
		SetValidFor(e.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &media.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: roomName,
		Identity: connID,
	}, nil
}

// Ensure LiveKitEngine implements media.Engine
var _ media.Engine = (*LiveKitEngine)(nil)
