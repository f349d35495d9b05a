package domain

type (
	RoomID   string
	RoomName string
)

// Room identifies the meeting room a descriptor belongs to.
type Room struct {
	ID   RoomID   `json:"id"`
	Name RoomName `json:"name"`
	GUID string   `json:"guid,omitempty"`
}
