package constants

const (
	// UpdatesChannel carries one automatic notification per successful
	// data-plane mutation. Clients may subscribe to it; they should not
	// publish on it.
	UpdatesChannel = "db_updates"

	// DefaultMaxFrameBytes bounds a single inbound request frame. The
	// historical wire format budgeted one kilobyte per request; the limit
	// is configurable but this default keeps old clients working.
	DefaultMaxFrameBytes = 1024
)

const (
	ActionGet        = "get"
	ActionSet        = "set"
	ActionSetWithTTL = "set_with_ttl"
	ActionDelete     = "delete"
	ActionKeys       = "keys"

	ActionSubscribe       = "subscribe"
	ActionUnsubscribe     = "unsubscribe"
	ActionPublish         = "publish"
	ActionBroadcast       = "broadcast"
	ActionListChannels    = "list_channels"
	ActionListSubscribers = "list_subscribers"

	// RequestTypePubSub routes a frame to the control plane; frames without
	// it go to the data plane.
	RequestTypePubSub = "pubsub"
)
