package domain

// ICEServer is one STUN/TURN entry handed to the media engine verbatim.
type ICEServer struct {
	URLs     []string `json:"urls"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
}

// SignalingInfo points at the call-level socket.
type SignalingInfo struct {
	Endpoint  string `json:"endpoint"`
	AuthToken string `json:"auth_token"`
}

// RecordingInfo mirrors the room's recording state at a point in time.
type RecordingInfo struct {
	ID        string `json:"id"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
}

// BroadcastInfo mirrors one active broadcast target.
type BroadcastInfo struct {
	ID        string `json:"id"`
	Platform  string `json:"platform"`
	PlayerURL string `json:"player_url,omitempty"`
}

// SnapshotInfo mirrors one snapshot artifact.
type SnapshotInfo struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Links     map[string]string `json:"links,omitempty"`
	CreatedAt int64             `json:"created_at"`
}

// MeetingDescriptor is the result of a successful join call. It is immutable
// per join and replaced wholesale on reconnect, never patched.
type MeetingDescriptor struct {
	AccessKey    string          `json:"access_key"`
	Ready        bool            `json:"ready"`
	Locked       bool            `json:"locked"`
	Room         Room            `json:"room"`
	User         UserInfo        `json:"user"`
	ClientID     string          `json:"client_id"`
	ConferenceID string          `json:"conference_id"`
	MeetingWS    string          `json:"websocket"`
	Signaling    SignalingInfo   `json:"signaling"`
	ICEServers   []ICEServer     `json:"ice_servers"`
	Recording    *RecordingInfo  `json:"recording,omitempty"`
	Broadcasts   []BroadcastInfo `json:"broadcasts,omitempty"`
	Snapshots    []SnapshotInfo  `json:"snapshots,omitempty"`
	AudioOnly    bool            `json:"audio_only,omitempty"`
}
