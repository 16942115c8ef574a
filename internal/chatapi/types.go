package chatapi

import "time"

// Envelope is an encrypted message body. IV is 12 bytes; Ciphertext carries
// the 16-byte authentication tag at its end.
type Envelope struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Salt         []byte `json:"salt"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type CreateRoomRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants,omitempty"`
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

type ListRoomsRequest struct{}

type RoomSummary struct {
	RoomID        string    `json:"room_id"`
	Name          string    `json:"name"`
	CreatorID     string    `json:"creator_id"`
	IsEncrypted   bool      `json:"is_encrypted"`
	CreatedAt     time.Time `json:"created_at"`
	Participants  []string  `json:"participants"`
	LatestMessage *Message  `json:"latest_message,omitempty"`
	UnreadCount   int       `json:"unread_count"`
}

type ListRoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

type Message struct {
	ID            string     `json:"id"`
	RoomID        string     `json:"room_id"`
	SenderID      string     `json:"sender_id"`
	Sender        string     `json:"sender"`
	Seq           int64      `json:"seq"`
	Envelope      Envelope   `json:"envelope"`
	Kind          string     `json:"kind"`
	IsEdited      bool       `json:"is_edited,omitempty"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	ReplyToID     *string    `json:"reply_to_id,omitempty"`
	ReplyToSender *string    `json:"reply_to_sender,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SendMessageRequest struct {
	RoomID    string   `json:"room_id"`
	Envelope  Envelope `json:"envelope"`
	Kind      string   `json:"kind,omitempty"`
	ReplyToID *string  `json:"reply_to_id,omitempty"`
}

type SendMessageResponse struct {
	MessageID string    `json:"message_id"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

type ListMessagesRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type EditMessageRequest struct {
	RoomID    string   `json:"room_id"`
	MessageID string   `json:"message_id"`
	Envelope  Envelope `json:"envelope"`
}

type EditMessageResponse struct {
	Message Message `json:"message"`
}

type MarkReadRequest struct {
	RoomID string `json:"room_id"`
}

type MarkReadResponse struct {
	ReadAt time.Time `json:"read_at"`
}

type Member struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type ListMembersRequest struct {
	RoomID string `json:"room_id"`
}

type ListMembersResponse struct {
	Members []Member `json:"members"`
}

type AddMemberRequest struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
}

type AddMemberResponse struct {
	Member Member `json:"member"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"room_id"`
}

type LeaveRoomResponse struct{}

type PresignUploadRequest struct {
	RoomID string `json:"room_id"`
}

type PresignUploadResponse struct {
	StorageKey string `json:"storage_key"`
	URL        string `json:"url"`
}

type PresignDownloadRequest struct {
	RoomID     string `json:"room_id"`
	StorageKey string `json:"storage_key"`
}

type PresignDownloadResponse struct {
	URL string `json:"url"`
}
