package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirestream/internal/core"
	"github.com/vovakirdan/wirestream/internal/presence"
)

// RoomHandlers provides HTTP handlers for room endpoints.
type RoomHandlers struct {
	coord        *core.Coordinator
	maxBodyBytes int64
	log          *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance. Request bodies
// larger than maxBodyBytes are rejected; zero means no limit.
func NewRoomHandlers(coord *core.Coordinator, maxBodyBytes int64, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		coord:        coord,
		maxBodyBytes: maxBodyBytes,
		log:          logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreateRoomResponse is returned by POST /api/rooms.
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

// MemberResponse is one viewer of a room.
type MemberResponse struct {
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username"`
}

// RoomDetailsResponse is returned by GET /api/rooms/:id.
type RoomDetailsResponse struct {
	Room       core.RoomSummary `json:"room"`
	Viewers    int64            `json:"viewers"`
	Activities []string         `json:"activities"`
	Members    []MemberResponse `json:"members"`
}

// CreateRoom handles room creation. The body is the room metadata object.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "metadata too large", Code: core.ErrCodeBadRequest})
			return
		}
		h.log.Debug().Err(err).Msg("read create room body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	room, err := h.coord.CreateRoom(c.Request.Context(), nil, core.VariantRoom, body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateRoomResponse{RoomID: room.ID})
}

// ListRooms handles listing every room with its viewer count.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	summaries, err := h.coord.ListRooms(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.log.Debug().Int("room_count", len(summaries)).Msg("rooms listed")
	c.JSON(http.StatusOK, summaries)
}

// GetRoom returns one room with presence and activity.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	details, err := h.coord.RoomDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	activities := details.Activities
	if activities == nil {
		activities = []string{}
	}
	c.JSON(http.StatusOK, RoomDetailsResponse{
		Room:       core.RoomSummary{ID: details.Room.ID, Metadata: details.Room.Metadata, Viewers: details.Viewers},
		Viewers:    details.Viewers,
		Activities: activities,
		Members:    membersResponse(details.Members),
	})
}

func (h *RoomHandlers) writeError(c *gin.Context, err error) {
	ce := core.AsCoreError(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("room request failed")
	}
	c.JSON(status, ErrorResponse{Error: ce.Message, Code: ce.Code})
}

func membersResponse(viewers []presence.Viewer) []MemberResponse {
	members := make([]MemberResponse, 0, len(viewers))
	for _, v := range viewers {
		members = append(members, MemberResponse{ConnectionID: v.ConnectionID, Username: v.Username})
	}
	return members
}
